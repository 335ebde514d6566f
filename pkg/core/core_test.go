package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestScan_Smoke(t *testing.T) {
	root := t.TempDir()
	code := "def admin(request):\n    return data\n"
	if err := os.WriteFile(filepath.Join(root, "views.py"), []byte(code), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := Scan(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(res.Violations) == 0 {
		t.Fatal("expected at least one violation")
	}
	ids := ControlIDs()
	if len(ids) == 0 {
		t.Fatal("expected non-empty control IDs")
	}
}
