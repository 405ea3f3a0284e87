package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeSync, cause, "pull notifications")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be discoverable")
	}
	if err.Code() != CodeSync {
		t.Fatalf("expected sync code, got %s", err.Code())
	}
}

func TestAsUnwrapsThroughChains(t *testing.T) {
	inner := New(CodeShape, "not an array")
	outer := fmt.Errorf("import failed: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error from chain")
	}
	if typed.Code() != CodeShape {
		t.Fatalf("expected shape code, got %s", typed.Code())
	}
}

func TestIsMatchesCode(t *testing.T) {
	err := New(CodeParse, "empty input")
	if !Is(err, CodeParse) {
		t.Fatal("expected parse code match")
	}
	if Is(err, CodeShape) {
		t.Fatal("did not expect shape code match")
	}
	if Is(nil, CodeParse) {
		t.Fatal("nil error must not match")
	}
}

func TestMetadataForUnknownCode(t *testing.T) {
	meta := MetadataFor(Code("BOGUS"))
	if meta.PublicMessage != metadataByCode[CodeInternal].PublicMessage {
		t.Fatalf("expected internal metadata fallback, got %+v", meta)
	}
}

func TestWrapNilCause(t *testing.T) {
	err := Wrap(CodeValidation, nil, "missing id")
	if err.Unwrap() != nil {
		t.Fatal("expected no cause for nil wrap")
	}
	if err.Error() != "VALIDATION_ERROR: missing id" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
}
