// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package history

import (
	"testing"
	"time"

	"github.com/relabs-tech/pressure_computer/internal/env"
)

func TestStore(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	t0 := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	for i := 0; i < 3; i++ {
		err := s.Insert(env.Sample{
			Source:         "ms5803",
			Time:           t0.Add(time.Duration(i) * time.Second),
			Temperature:    20 + float64(i),
			PressureMbar:   1013.2,
			RawTemperature: 8077636,
			RawPressure:    4436254 + uint32(i),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	if n, err := s.Count(); err != nil || n != 3 {
		t.Fatalf("Count() = %d, %v", n, err)
	}
	got, err := s.Latest(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d samples", len(got))
	}
	if got[0].Temperature != 22 || got[1].Temperature != 21 {
		t.Fatalf("not newest first: %+v", got)
	}
	if !got[0].Time.Equal(t0.Add(2*time.Second)) || got[0].RawPressure != 4436256 || got[0].Pressure != 101320 {
		t.Fatalf("got %+v", got[0])
	}
}
