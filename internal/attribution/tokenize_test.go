package attribution

import "testing"

func TestTokenizeDropsStopWordsAndShortTokens(t *testing.T) {
	tokens := Tokenize("Add the login form validation to the auth module")
	if tokens["the"] || tokens["to"] || tokens["add"] {
		t.Fatalf("expected stop words dropped, got %+v", tokens)
	}
	if !tokens["login"] || !tokens["validation"] || !tokens["auth"] || !tokens["module"] {
		t.Fatalf("expected content words kept, got %+v", tokens)
	}
}

func TestOverlapCount(t *testing.T) {
	a := Tokenize("login form validation")
	b := Tokenize("validation logic for login")
	if n := OverlapCount(a, b); n != 2 {
		t.Fatalf("expected overlap of 2 (login, validation), got %d", n)
	}
}

func TestSharesAnyToken(t *testing.T) {
	a := Tokenize("refactor the auth module")
	b := Tokenize("unrelated billing invoice logic")
	if SharesAnyToken(a, b) {
		t.Fatal("expected no shared tokens")
	}
	c := Tokenize("auth module cleanup")
	if !SharesAnyToken(a, c) {
		t.Fatal("expected shared token 'auth'/'module'")
	}
}
