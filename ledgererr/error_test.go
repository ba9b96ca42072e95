package ledgererr

import "testing"

func TestErrorCodeStringer(t *testing.T) {
	tests := []struct {
		in   ErrorCode
		want string
	}{
		{ErrInvalidFormat, "ErrInvalidFormat"},
		{ErrDustAmount, "ErrDustAmount"},
		{ErrBadSignature, "ErrBadSignature"},
		{ErrBadNonce, "ErrBadNonce"},
		{ErrInsufficientFunds, "ErrInsufficientFunds"},
		{ErrReorgTooDeep, "ErrReorgTooDeep"},
		{ErrorCode(0xffff), "Unknown ErrorCode (65535)"},
	}

	for i, test := range tests {
		got := test.in.String()
		if got != test.want {
			t.Errorf("test #%d: got %q want %q", i, got, test.want)
		}
	}
}

func TestRuleErrorIs(t *testing.T) {
	err := New(ErrBadNonce, "nonce %d != expected %d", 5, 3)
	if !Is(err, ErrBadNonce) {
		t.Fatal("expected Is to match the constructed error code")
	}
	if Is(err, ErrDustAmount) {
		t.Fatal("expected Is to reject a mismatched error code")
	}
	if err.Error() != "nonce 5 != expected 3" {
		t.Fatalf("unexpected description: %s", err.Error())
	}
}
