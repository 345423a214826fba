/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package bolt

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Comcast/gridbus/sheet"
)

func testStorage(t *testing.T) *Storage {
	s, err := NewStorage(filepath.Join(t.TempDir(), "grid.db"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := s.Open(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		s.Close(ctx)
	})
	return s
}

func TestStorageRoundTrip(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	wb := sheet.NewWorkbook("budget")
	if _, err := wb.Set("A1", "10"); err != nil {
		t.Fatal(err)
	}
	js, err := sheet.ExportJSON(wb)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.SaveDocument(ctx, wb.Name, js); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadDocument(ctx, "budget")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, js) {
		t.Fatalf("got %s", got)
	}

	wb2 := sheet.NewWorkbook("")
	if err := sheet.ImportJSON(wb2, got); err != nil {
		t.Fatal(err)
	}
	if wb2.Name != "budget" {
		t.Fatalf("name %s", wb2.Name)
	}
}

func TestStorageNotFound(t *testing.T) {
	s := testStorage(t)

	if _, err := s.LoadDocument(context.Background(), "nope"); !errors.Is(err, NotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestStorageListRemove(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	for _, name := range []string{"one", "two"} {
		if err := s.SaveDocument(ctx, name, []byte(`{}`)); err != nil {
			t.Fatal(err)
		}
	}

	names, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(names, " ") != "one two" {
		t.Fatalf("got %v", names)
	}

	if err := s.RemoveDocument(ctx, "one"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadDocument(ctx, "one"); !errors.Is(err, NotFound) {
		t.Fatalf("got %v", err)
	}
	if _, err := s.LoadDocument(ctx, "two"); err != nil {
		t.Fatal(err)
	}
}

func TestStorageNilReceiver(t *testing.T) {
	var s *Storage
	ctx := context.Background()

	if err := s.SaveDocument(ctx, "x", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadDocument(ctx, "x"); !errors.Is(err, NotFound) {
		t.Fatalf("got %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}
}
