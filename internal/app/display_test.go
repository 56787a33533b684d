package app

import (
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/pressure_computer/internal/env"
)

func litPixels(img *image1bit.VerticalLSB) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestRenderEnv(t *testing.T) {
	waiting := litPixels(renderEnv(env.Sample{}, false, env.Status{}, false))
	if waiting == 0 {
		t.Fatal("waiting screen is blank")
	}
	reading := litPixels(renderEnv(testSample, true, env.Status{OK: true}, true))
	if reading <= waiting {
		t.Fatalf("reading screen has %d lit pixels, waiting screen %d", reading, waiting)
	}
	failed := renderEnv(testSample, true, env.Status{Source: "ms5803", Error: "ms5803: reset: remote I/O error"}, true)
	if litPixels(failed) == 0 {
		t.Fatal("error screen is blank")
	}
	if litPixels(renderSplash()) == 0 {
		t.Fatal("splash is blank")
	}
}

func TestRemapBus(t *testing.T) {
	rec := &i2ctest.Record{}
	b := &remapBus{Bus: rec, addr: 0x3D}
	if err := b.Tx(ssd1306DefaultAddr, []byte{0x00, 0xAF}, nil); err != nil {
		t.Fatal(err)
	}
	if len(rec.Ops) != 1 || rec.Ops[0].Addr != 0x3D {
		t.Fatalf("ops %+v", rec.Ops)
	}
}
