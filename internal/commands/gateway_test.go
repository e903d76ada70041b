package commands

import (
	"testing"

	"github.com/Shakes-tzd/ijoka/internal/errs"
)

func TestClassifyExitCodeStoreErrorsMapToTwo(t *testing.T) {
	if code := classifyExitCode(&errs.StoreUnavailableError{}); code != 2 {
		t.Fatalf("expected exit code 2 for a store-unavailable error, got %d", code)
	}
	if code := classifyExitCode(&errs.StoreTransientError{}); code != 2 {
		t.Fatalf("expected exit code 2 for a store-transient error, got %d", code)
	}
}

func TestClassifyExitCodeOtherErrorsMapToOne(t *testing.T) {
	if code := classifyExitCode(&errs.ValidationError{Field: "x", Reason: "required"}); code != 1 {
		t.Fatalf("expected exit code 1 for a validation error, got %d", code)
	}
	if code := classifyExitCode(&errs.NotFoundError{Entity: "Feature", ID: "f1"}); code != 1 {
		t.Fatalf("expected exit code 1 for a not-found error, got %d", code)
	}
}

func TestFilepathBase(t *testing.T) {
	if got := filepathBase("/home/user/my-repo"); got != "my-repo" {
		t.Fatalf("expected %q, got %q", "my-repo", got)
	}
	if got := filepathBase("no-slash"); got != "no-slash" {
		t.Fatalf("expected unchanged input with no slash, got %q", got)
	}
}

func TestParentDir(t *testing.T) {
	if got := parentDir("/a/b/c"); got != "/a/b" {
		t.Fatalf("expected %q, got %q", "/a/b", got)
	}
	if got := parentDir("/a"); got != "/" {
		t.Fatalf("expected root, got %q", got)
	}
}

func TestCmdErrWrapsNilAsNil(t *testing.T) {
	if err := cmdErr(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
