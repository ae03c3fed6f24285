package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "binding error",
			code:    "E001",
			wantMsg: "Unknown action type",
			wantCat: CategoryBinding,
		},
		{
			name:    "render error",
			code:    "E020",
			wantMsg: "Container detached",
			wantCat: CategoryRender,
		},
		{
			name:    "hmr error",
			code:    "E040",
			wantMsg: "HMR fetch failed",
			wantCat: CategoryHMR,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	base := New("E041").WithDetail("status 500")
	wrapped := fmt.Errorf("cycle: %w", base)

	if !Is(wrapped, New("E041")) {
		t.Error("expected wrapped error to match E041")
	}
	if Is(wrapped, New("E040")) {
		t.Error("did not expect wrapped error to match E040")
	}
	if !HasCode(Join(New("E043"), wrapped), "E041") {
		t.Error("expected HasCode to search joined errors")
	}
	if got := Code(wrapped); got != "E041" {
		t.Errorf("Code = %q, want E041", got)
	}
}

func TestErrorString(t *testing.T) {
	err := New("E001").WithDetail(`action "reset"`)
	if got, want := err.Error(), `E001: Unknown action type: action "reset"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	cause := fmt.Errorf("dial tcp: refused")
	err = New("E040").WithDetail("").Wrap(cause)
	if !strings.HasSuffix(err.Error(), "dial tcp: refused") {
		t.Errorf("Error() = %q, want cause suffix", err.Error())
	}
	if Unwrapped := err.Unwrap(); Unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", Unwrapped, cause)
	}
}

func TestFormatWithoutColors(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E002").WithSuggestion("Register the formatter at startup")
	out := err.Format()

	for _, want := range []string{"ERROR E002: Formatter not found", "Hint: Register the formatter", "Learn more:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() contains ANSI codes with colors disabled")
	}
}

func TestSummarize(t *testing.T) {
	if got := Summarize(nil); got != "" {
		t.Errorf("Summarize(nil) = %q", got)
	}
	if got := Summarize(fmt.Errorf("plain")); got != "plain" {
		t.Errorf("Summarize(plain) = %q", got)
	}
	if got, want := Summarize(New("E020")), "E020: Container detached (The render container is no longer part of the document.)"; got != want {
		t.Errorf("Summarize = %q, want %q", got, want)
	}
}

func TestGetAllCodesSorted(t *testing.T) {
	codes := GetAllCodes()
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Fatalf("codes not sorted at %d: %v", i, codes)
		}
	}
	for _, code := range codes {
		tmpl, _ := GetTemplate(code)
		if tmpl.Category == "" || tmpl.Message == "" {
			t.Errorf("template %s incomplete: %+v", code, tmpl)
		}
	}
}
