package vault

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestMemoryVault_PutAndGetObject(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	tests := []struct {
		name    string
		key     string
		content string
	}{
		{name: "store and retrieve", key: "daily/b/all_databases.sql", content: "hello world"},
		{name: "store empty object", key: "daily/b/empty", content: ""},
		{name: "store large object", key: "daily/b/large", content: strings.Repeat("x", 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := vault.PutObject(context.Background(), tt.key, strings.NewReader(tt.content), int64(len(tt.content)))
			if err != nil {
				t.Fatalf("PutObject() error = %v", err)
			}

			var buf bytes.Buffer
			if err := vault.GetObject(tt.key, &buf); err != nil {
				t.Fatalf("GetObject() error = %v", err)
			}
			if got := buf.String(); got != tt.content {
				t.Errorf("GetObject() = %q, want %q", got, tt.content)
			}
		})
	}
}

func TestMemoryVault_SizeMismatch(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	err := vault.PutObject(context.Background(), "k", strings.NewReader("hello"), 100)
	if err == nil {
		t.Fatal("PutObject() expected error for size mismatch")
	}
	if len(vault.Keys()) != 0 {
		t.Errorf("Keys() = %v, want none", vault.Keys())
	}
}

func TestMemoryVault_GetObject_NotFound(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	var buf bytes.Buffer
	err := vault.GetObject("missing", &buf)
	if err == nil || !strings.Contains(err.Error(), "object not found") {
		t.Errorf("GetObject() error = %v, want object not found", err)
	}
}

func TestMemoryVault_Keys(t *testing.T) {
	vault := NewMemoryVault("test-vault")
	for _, k := range []string{"monthly/b", "daily/b", "hourly/b"} {
		if err := vault.PutObject(context.Background(), k, strings.NewReader("x"), 1); err != nil {
			t.Fatalf("PutObject() error = %v", err)
		}
	}

	got := vault.Keys()
	want := []string{"daily/b", "hourly/b", "monthly/b"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestMemoryVault_Concurrency(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data := fmt.Sprintf("object-%d", i)
			if err := vault.PutObject(context.Background(), data, strings.NewReader(data), int64(len(data))); err != nil {
				t.Errorf("PutObject() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := len(vault.Keys()); got != 20 {
		t.Errorf("len(Keys()) = %d, want 20", got)
	}
}

func TestMemoryVault_DeletePrefix(t *testing.T) {
	v := NewMemoryVault("test")
	for _, k := range []string{
		"daily/backup_daily_20240101/MANIFEST.txt",
		"daily/backup_daily_20240101/all_databases.sql.gz",
		"daily/backup_daily_202401011/MANIFEST.txt",
		"hourly/backup_hourly_20240101_10/MANIFEST.txt",
	} {
		if err := v.PutObject(context.Background(), k, strings.NewReader("x"), 1); err != nil {
			t.Fatal(err)
		}
	}

	if err := v.DeletePrefix(context.Background(), "daily/backup_daily_20240101"); err != nil {
		t.Fatalf("DeletePrefix() error = %v", err)
	}

	want := "daily/backup_daily_202401011/MANIFEST.txt,hourly/backup_hourly_20240101_10/MANIFEST.txt"
	if got := strings.Join(v.Keys(), ","); got != want {
		t.Errorf("Keys() = %s, want %s", got, want)
	}

	if err := v.DeletePrefix(context.Background(), "monthly/backup_monthly_202401"); err != nil {
		t.Errorf("DeletePrefix() on a missing prefix error = %v", err)
	}
}
