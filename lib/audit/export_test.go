// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/bureau-foundation/ap2/lib/clock"
)

func populatedLog(count int) *Log {
	log := New(clock.Fake(epoch))
	for index := range count {
		log.Append("mandate", "CREATE_CART", "Cart created with 2 items totalling 699.00 EUR", fmt.Sprintf("cart_%d", index))
	}
	return log
}

func TestExportImportRoundTrip(t *testing.T) {
	entries := populatedLog(200).Snapshot()

	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			var buffer bytes.Buffer
			if err := Export(&buffer, entries, compression); err != nil {
				t.Fatalf("Export: %v", err)
			}

			imported, tag, err := Import(&buffer)
			if err != nil {
				t.Fatalf("Import: %v", err)
			}
			if tag != compression {
				t.Errorf("stored compression = %s, want %s", tag, compression)
			}
			if len(imported) != len(entries) {
				t.Fatalf("imported %d entries, want %d", len(imported), len(entries))
			}
			for index := range entries {
				if imported[index].MandateID != entries[index].MandateID ||
					imported[index].Sequence != entries[index].Sequence ||
					!imported[index].Timestamp.Equal(entries[index].Timestamp) {
					t.Fatalf("entry %d differs: %+v vs %+v", index, imported[index], entries[index])
				}
			}
		})
	}
}

func TestExportFallsBackWhenIncompressible(t *testing.T) {
	var buffer bytes.Buffer
	if err := Export(&buffer, nil, CompressionZstd); err != nil {
		t.Fatalf("Export: %v", err)
	}
	imported, tag, err := Import(&buffer)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if tag != CompressionNone {
		t.Errorf("tag = %s, want none for an empty export", tag)
	}
	if len(imported) != 0 {
		t.Errorf("imported %d entries, want 0", len(imported))
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	if _, _, err := Import(bytes.NewReader([]byte("not an export at all"))); err == nil {
		t.Error("Import accepted garbage")
	}
	if _, _, err := Import(bytes.NewReader(nil)); err == nil {
		t.Error("Import accepted empty input")
	}
}

func TestParseCompression(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd"} {
		compression, err := ParseCompression(name)
		if err != nil {
			t.Errorf("ParseCompression(%q): %v", name, err)
		}
		if compression.String() != name {
			t.Errorf("String() = %q, want %q", compression.String(), name)
		}
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Error("ParseCompression(gzip) succeeded")
	}
}
