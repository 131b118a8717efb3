package config

import (
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		def  string
		want func(string) bool
	}{
		{
			"empty uses default",
			"", "/default/root",
			func(got string) bool { return got == "/default/root" },
		},
		{
			"absolute kept",
			"/data/papers", "",
			func(got string) bool { return got == "/data/papers" },
		},
		{
			"cleaned",
			"/data//papers/./x", "",
			func(got string) bool { return got == "/data/papers/x" },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandPath(tt.in, tt.def)
			if err != nil {
				t.Fatalf("expandPath: %v", err)
			}
			if !tt.want(got) {
				t.Errorf("expandPath(%q) = %q", tt.in, got)
			}
		})
	}
}

func TestExpandPathRelative(t *testing.T) {
	got, err := expandPath("papers", "")
	if err != nil {
		t.Fatalf("expandPath: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("relative path not made absolute: %q", got)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:     AppConfig{Environment: "development"},
			Logger:  LoggerConfig{Level: "info"},
			Library: LibraryConfig{Root: "/tmp/lib", FileWorkers: 4},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	c := valid()
	c.App.Environment = "staging"
	if err := c.Validate(); err == nil {
		t.Error("expected error for unknown environment")
	}

	c = valid()
	c.Logger.Level = "verbose"
	if err := c.Validate(); err == nil {
		t.Error("expected error for unknown log level")
	}

	c = valid()
	c.Library.Root = ""
	if err := c.Validate(); err == nil {
		t.Error("expected error for empty library root")
	}

	c = valid()
	c.Library.FileWorkers = 0
	if err := c.Validate(); err == nil {
		t.Error("expected error for zero file workers")
	}
}

func TestBoolValue(t *testing.T) {
	tests := []struct {
		flag string
		def  bool
		want bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"false", true, false},
		{"no", true, false},
		{"", true, true},
		{"", false, false},
	}
	for _, tt := range tests {
		if got := boolValue(tt.flag, "PAPERBASE_TEST_UNSET", tt.def); got != tt.want {
			t.Errorf("boolValue(%q, default %v) = %v, want %v", tt.flag, tt.def, got, tt.want)
		}
	}
}
