package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestRun(t *testing.T) {
	cases := []struct {
		args     []string
		wantCode int
		wantOut  string
	}{
		{[]string{"encode", "28.622788", "77.213033"}, 0, `"code": "39J49LL8T4"`},
		{[]string{"encode", "-p", "5", "28.622788", "77.213033"}, 0, `"code": "39J49"`},
		{[]string{"decode", "39j49ll8t4"}, 0, `"code": "39J49LL8T4"`},
		{[]string{"bounds", "39J49"}, 0, `"min_lat"`},
		{[]string{"parent", "39J49LL8T4"}, 0, `"parent": "39J49LL8T"`},
		{[]string{"parent", "-level", "3", "39J49LL8T4"}, 0, `"parent": "39J"`},
		{[]string{"neighbors", "-dir", "north", "39J49LL8T4"}, 0, `[`},
		{[]string{"disk", "-r", "1", "39J49LL8"}, 0, `"39J49LL8"`},
		{[]string{"ring", "-r", "1", "39J49LL8"}, 0, `[`},
		{[]string{"validate", "-strict", "39J49"}, 0, `"valid": false`},
		{[]string{"validate", "39J49"}, 0, `"valid": true`},
	}
	for _, c := range cases {
		var stdout, stderr bytes.Buffer
		code := run(c.args, &stdout, &stderr)
		if code != c.wantCode {
			t.Fatalf("%v: exit=%d stderr=%s", c.args, code, stderr.String())
		}
		if !strings.Contains(stdout.String(), c.wantOut) {
			t.Fatalf("%v: stdout %q missing %q", c.args, stdout.String(), c.wantOut)
		}
	}
}

func TestRun_DiskOutputIsJSONList(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"disk", "-r", "2", "39J49LL8"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, stderr.String())
	}
	var cells []string
	if err := json.Unmarshal(stdout.Bytes(), &cells); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cells) != 25 {
		t.Fatalf("cells=%d want 25", len(cells))
	}
}

func TestRun_Errors(t *testing.T) {
	cases := []struct {
		args     []string
		wantCode int
		wantErr  string
	}{
		{nil, 2, "usage"},
		{[]string{"teleport"}, 2, "unknown command"},
		{[]string{"decode"}, 2, "usage"},
		{[]string{"encode", "abc", "77"}, 1, "latitude"},
		{[]string{"encode", "0", "0"}, 1, "outside bounding box"},
		{[]string{"decode", "39J4A"}, 1, "invalid code"},
		{[]string{"ring", "-r", "0", "39J49"}, 1, "radius"},
		{[]string{"neighbors", "-dir", "up", "39J49"}, 1, "direction"},
	}
	for _, c := range cases {
		var stdout, stderr bytes.Buffer
		code := run(c.args, &stdout, &stderr)
		if code != c.wantCode {
			t.Fatalf("%v: exit=%d want %d", c.args, code, c.wantCode)
		}
		if !strings.Contains(stderr.String(), c.wantErr) {
			t.Fatalf("%v: stderr %q missing %q", c.args, stderr.String(), c.wantErr)
		}
		if stdout.Len() != 0 {
			t.Fatalf("%v: unexpected stdout %q", c.args, stdout.String())
		}
	}
}
