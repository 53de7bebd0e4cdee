package util_test

import (
	"testing"

	"github.com/pganalyze/pgindexrebuild/util"
)

var formatBytesTests = []struct {
	input    int64
	expected string
}{
	{0, "0 bytes"},
	{1, "1 B (1 bytes)"},
	{1024, "1.0 KiB (1,024 bytes)"},
	{1024 * 1024, "1.0 MiB (1,048,576 bytes)"},
	{1024 * 1024 * 1024, "1.0 GiB (1,073,741,824 bytes)"},
	{-1024 * 1024 * 1024, "-1.0 GiB (-1,073,741,824 bytes)"},
}

func TestFormatBytes(t *testing.T) {
	for _, test := range formatBytesTests {
		actual := util.FormatBytes(test.input)
		if actual != test.expected {
			t.Errorf("FormatBytes(%d): expected %q; actual %q", test.input, test.expected, actual)
		}
	}
}

var parseBytesTests = []struct {
	input     string
	expected  int64
	expectErr bool
}{
	{"8192", 8192, false},
	{"8KiB", 8192, false},
	{"8kB", 8000, false},
	{"1 MiB", 1048576, false},
	{"lots", 0, true},
}

func TestParseBytes(t *testing.T) {
	for _, test := range parseBytesTests {
		actual, err := util.ParseBytes(test.input)
		if (err != nil) != test.expectErr {
			t.Errorf("ParseBytes(%s): expected err: %t; actual: %v", test.input, test.expectErr, err)
		}
		if actual != test.expected {
			t.Errorf("ParseBytes(%s): expected %d; actual %d", test.input, test.expected, actual)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if actual := util.FormatPercent(1, 4); actual != "25%" {
		t.Errorf("expected 25%%; actual %s", actual)
	}
	if actual := util.FormatPercent(1, 0); actual != "N/A" {
		t.Errorf("expected N/A; actual %s", actual)
	}
}
