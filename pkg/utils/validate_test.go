package utils

import (
	"strings"
	"testing"
)

func TestValidateShareID(t *testing.T) {
	valid := []string{"a1b2c3", "000000", "ffffff"}
	for _, id := range valid {
		if err := ValidateShareID(id); err != nil {
			t.Errorf("ValidateShareID(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{"", "a1b2c", "a1b2c3d", "A1B2C3", "g1b2c3", "a1 b2c"}
	for _, id := range invalid {
		if err := ValidateShareID(id); err == nil {
			t.Errorf("ValidateShareID(%q) = nil, want error", id)
		}
	}
}

func TestValidateDisplayName(t *testing.T) {
	if err := ValidateDisplayName("Alice"); err != nil {
		t.Errorf("ValidateDisplayName(Alice) = %v, want nil", err)
	}

	if err := ValidateDisplayName("   "); err == nil {
		t.Error("blank name should be rejected")
	}

	if err := ValidateDisplayName(strings.Repeat("a", 256)); err == nil {
		t.Error("overlong name should be rejected")
	}

	if err := ValidateDisplayName("Ali\x00ce"); err == nil {
		t.Error("name with control characters should be rejected")
	}
}

func TestValidateImageUploadType(t *testing.T) {
	if err := ValidateImageUpload("cat.jpg", "", 2048); err != nil {
		t.Errorf("jpg upload rejected: %v", err)
	}

	// 扩展名推断不出时退回声明的 Content-Type
	if err := ValidateImageUpload("photo", "image/jpeg", 2048); err != nil {
		t.Errorf("declared image type rejected: %v", err)
	}

	if err := ValidateImageUpload("notes.txt", "", 2048); err == nil {
		t.Error("txt upload should be rejected")
	}

	if err := ValidateImageUpload("script.js", "image/png", 2048); err == nil {
		t.Error("extension wins over declared type, js upload should be rejected")
	}
}

func TestValidateImageUploadSizeBoundary(t *testing.T) {
	// 恰好 10 MiB 接受，超出 1 字节拒绝
	if err := ValidateImageUpload("cat.jpg", "", MaxUploadSize); err != nil {
		t.Errorf("file at exact limit rejected: %v", err)
	}

	if err := ValidateImageUpload("cat.jpg", "", MaxUploadSize+1); err == nil {
		t.Error("file one byte over limit should be rejected")
	}
}
