package integrity

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "f.bin")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"md5:" + hexOf(md5.Sum(nil)), AlgorithmMD5, false},
		{"sha256:" + hexOf(sha256.Sum256(nil)), AlgorithmSHA256, false},
		{"blake3:" + hexOf(sha256.Sum256(nil)), AlgorithmBLAKE3, false},
		{hexOf(md5.Sum(nil)), AlgorithmMD5, false},
		{hexOf(sha256.Sum256(nil)), AlgorithmSHA256, false},
		{"whirlpool:abcd", "", true},
		{"md5:not-hex!", "", true},
		{"abc", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got.Algorithm != tt.want {
			t.Errorf("Parse(%q).Algorithm = %s, want %s", tt.in, got.Algorithm, tt.want)
		}
	}
}

func hexOf(sum any) string {
	switch v := sum.(type) {
	case [16]byte:
		return hex.EncodeToString(v[:])
	case [32]byte:
		return hex.EncodeToString(v[:])
	}
	return ""
}

func TestHashFile(t *testing.T) {
	content := []byte("hello integrity")
	path := writeTemp(t, content)

	sum := sha256.Sum256(content)
	got, err := HashFile(path, AlgorithmSHA256)
	if err != nil {
		t.Fatalf("HashFile() error = %v", err)
	}
	if got.Value != hex.EncodeToString(sum[:]) {
		t.Errorf("Value = %s, want %s", got.Value, hex.EncodeToString(sum[:]))
	}
}

func TestHashFile_BLAKE3(t *testing.T) {
	path := writeTemp(t, []byte("blake3 content"))

	got, err := HashFile(path, AlgorithmBLAKE3)
	if err != nil {
		t.Fatalf("HashFile() error = %v", err)
	}
	if len(got.Value) != 64 {
		t.Errorf("blake3 digest length = %d, want 64 hex chars", len(got.Value))
	}
}

func TestVerifyFile(t *testing.T) {
	content := []byte("verify me")
	path := writeTemp(t, content)
	sum := md5.Sum(content)

	ok := &Checksum{Algorithm: AlgorithmMD5, Value: hex.EncodeToString(sum[:])}
	if err := VerifyFile(path, ok); err != nil {
		t.Errorf("VerifyFile() error = %v, want nil", err)
	}

	bad := &Checksum{Algorithm: AlgorithmMD5, Value: "00000000000000000000000000000000"}
	if err := VerifyFile(path, bad); !errors.Is(err, ErrMismatch) {
		t.Errorf("VerifyFile() error = %v, want ErrMismatch", err)
	}

	if err := VerifyFile(path, nil); err != nil {
		t.Errorf("VerifyFile(nil) error = %v, want nil", err)
	}
}

func TestVerifyMD5(t *testing.T) {
	content := []byte("api reported md5")
	path := writeTemp(t, content)
	sum := md5.Sum(content)

	if err := VerifyMD5(path, hex.EncodeToString(sum[:])); err != nil {
		t.Errorf("VerifyMD5() error = %v", err)
	}
	if err := VerifyMD5(path, "ffffffffffffffffffffffffffffffff"); err == nil {
		t.Error("VerifyMD5() should fail on a wrong digest")
	}
	if err := VerifyMD5(path, ""); err != nil {
		t.Errorf("VerifyMD5(\"\") error = %v, want nil", err)
	}
	if err := VerifyMD5(filepath.Join(t.TempDir(), "missing"), hex.EncodeToString(sum[:])); err == nil {
		t.Error("VerifyMD5() should fail on a missing file")
	}
}
