package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2022-01-03 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.Equal(time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", got)
	}
	if _, err := ParseDate("03/01/2022"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseFloatList(t *testing.T) {
	got, err := ParseFloatList("0.01, -0.02,,0.015")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 3 || got[1] != -0.02 {
		t.Fatalf("unexpected %v", got)
	}
	if _, err := ParseFloatList("0.01,abc"); err == nil {
		t.Fatalf("expected error")
	}
	if s := SplitList(" AAPL, ,MSFT "); len(s) != 2 || s[1] != "MSFT" {
		t.Fatalf("unexpected %v", s)
	}
}
