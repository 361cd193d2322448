package command

import (
	"fmt"
	"math/rand"
	"testing"

	"feedo/internal/domain"
)

const testHandle = "feedo3app"

func TestParse_VerbForm(t *testing.T) {
	cmd, reason := Parse("@feedo3app deploy Rocket $RKT", testHandle)
	if reason != domain.RejectNone {
		t.Fatalf("expected valid command, got rejection %q", reason)
	}
	if cmd.Name != "Rocket" {
		t.Errorf("Name mismatch: got %s, want Rocket", cmd.Name)
	}
	if cmd.Ticker != "RKT" {
		t.Errorf("Ticker mismatch: got %s, want RKT", cmd.Ticker)
	}
}

func TestParse_BareForm(t *testing.T) {
	cmd, reason := Parse("@feedo3app Rocket $RKT", testHandle)
	if reason != domain.RejectNone {
		t.Fatalf("expected valid command, got rejection %q", reason)
	}
	if cmd.Name != "Rocket" || cmd.Ticker != "RKT" {
		t.Errorf("got (%s, %s), want (Rocket, RKT)", cmd.Name, cmd.Ticker)
	}
}

func TestParse_LaunchVerb(t *testing.T) {
	cmd, reason := Parse("@feedo3app launch Moon $MOON", testHandle)
	if reason != domain.RejectNone {
		t.Fatalf("expected valid command, got rejection %q", reason)
	}
	if cmd.Name != "Moon" || cmd.Ticker != "MOON" {
		t.Errorf("got (%s, %s), want (Moon, MOON)", cmd.Name, cmd.Ticker)
	}
}

func TestParse_CaseInsensitive(t *testing.T) {
	cases := []string{
		"@FEEDO3APP DEPLOY Rocket $rkt",
		"@Feedo3App Deploy Rocket $Rkt",
		"hey @feedo3app DEPLOY Rocket $RKT please",
	}
	for _, text := range cases {
		cmd, reason := Parse(text, testHandle)
		if reason != domain.RejectNone {
			t.Errorf("%q: expected valid command, got rejection %q", text, reason)
			continue
		}
		if cmd.Ticker != "RKT" {
			t.Errorf("%q: ticker not normalized, got %s", text, cmd.Ticker)
		}
	}
}

func TestParse_NotMentioned(t *testing.T) {
	cases := []string{
		"check this out",
		"",
		"deploy Rocket $RKT",
		"@someoneelse deploy Rocket $RKT",
		"nice post!",
	}
	for _, text := range cases {
		_, reason := Parse(text, testHandle)
		if reason != domain.RejectNotMentioned {
			t.Errorf("%q: expected not-mentioned, got %q", text, reason)
		}
	}
}

func TestParse_MentionBoundary(t *testing.T) {
	// A longer username sharing the handle as a prefix is someone else.
	longer := []string{
		"@feedo3apple deploy Rocket $RKT",
		"@feedo3app_ deploy Rocket $RKT",
		"@feedo3app.official deploy Rocket $RKT",
		"@feedo3app2 Rocket $RKT",
	}
	for _, text := range longer {
		_, reason := Parse(text, testHandle)
		if reason != domain.RejectNotMentioned {
			t.Errorf("%q: expected not-mentioned, got %q", text, reason)
		}
	}

	// Punctuation or end of text after the handle is still a mention.
	mentioned := []string{
		"@feedo3app",
		"@feedo3app!",
		"hey @feedo3app, deploy something",
		"cc @feedo3app",
	}
	for _, text := range mentioned {
		_, reason := Parse(text, testHandle)
		if reason == domain.RejectNotMentioned {
			t.Errorf("%q: expected a mention, got not-mentioned", text)
		}
	}
}

func TestParse_NoCommand(t *testing.T) {
	cases := []string{
		"@feedo3app hello there",
		"@feedo3app deploy",
		"@feedo3app deploy Rocket",
		"@feedo3app $RKT",
	}
	for _, text := range cases {
		_, reason := Parse(text, testHandle)
		if reason != domain.RejectNoCommand {
			t.Errorf("%q: expected no-command, got %q", text, reason)
		}
	}
}

func TestParse_InvalidTicker(t *testing.T) {
	cases := []string{
		"@feedo3app deploy Rocket $AB",          // too short
		"@feedo3app deploy Rocket $ABCDEFGHIJK", // too long
		"@feedo3app Rocket $XY",                 // bare form, too short
	}
	for _, text := range cases {
		_, reason := Parse(text, testHandle)
		if reason != domain.RejectInvalidTicker {
			t.Errorf("%q: expected invalid-ticker, got %q", text, reason)
		}
	}
}

// Property: any string without the target handle is rejected with
// not-mentioned, regardless of casing or verb tokens present.
func TestParse_NotMentionedProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	words := []string{"deploy", "launch", "Rocket", "$RKT", "DEPLOY", "hello", "$MOON", "token"}

	for i := 0; i < 200; i++ {
		n := rng.Intn(6)
		text := ""
		for j := 0; j < n; j++ {
			if j > 0 {
				text += " "
			}
			text += words[rng.Intn(len(words))]
		}
		_, reason := Parse(text, testHandle)
		if reason != domain.RejectNotMentioned {
			t.Fatalf("%q: expected not-mentioned, got %q", text, reason)
		}
	}
}

// Property: a generated "@handle deploy NAME $TICKER" string parses back to
// the identical (name, ticker) pair with the ticker case-normalized.
func TestParse_RoundTripProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const tickerChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const nameChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	for i := 0; i < 200; i++ {
		name := randString(rng, nameChars, 1+rng.Intn(12))
		ticker := randString(rng, tickerChars, MinTickerLen+rng.Intn(MaxTickerLen-MinTickerLen+1))

		text := fmt.Sprintf("@%s deploy %s $%s", testHandle, name, ticker)
		cmd, reason := Parse(text, testHandle)
		if reason != domain.RejectNone {
			t.Fatalf("%q: unexpected rejection %q", text, reason)
		}
		if cmd.Name != name || cmd.Ticker != ticker {
			t.Fatalf("%q: got (%s, %s), want (%s, %s)", text, cmd.Name, cmd.Ticker, name, ticker)
		}
	}
}

func randString(rng *rand.Rand, alphabet string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}
