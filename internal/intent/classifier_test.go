package intent

import "testing"

func TestClassifyDefaultRules(t *testing.T) {
	c := NewClassifier(DefaultRules())
	tests := []struct {
		text string
		want string
	}{
		{"How much does Notely Pro cost?", "billing"},
		{"I need a refund for last month", "billing"},
		{"I can't log in to my account", "account"},
		{"reset my PASSWORD please", "account"},
		{"my notes stopped syncing yesterday", "sync"},
		{"how do I share a notebook with my team", "sharing"},
		{"how do i use markdown headings", "howto"},
		{"the app keeps crashing on startup", "support"},
		{"hello!", "greeting"},
		{"goodbye and thanks", "farewell"},
		{"what is the airspeed of an unladen swallow", Unknown},
		{"", Unknown},
	}
	for _, tt := range tests {
		if got := c.Classify(tt.text); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	c := NewClassifier(DefaultRules())
	if c.Classify("WHAT IS THE PRICE") != c.Classify("what is the price") {
		t.Error("classification should be case-insensitive")
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewClassifier(DefaultRules())
	const text = "billing problem with my account"
	first := c.Classify(text)
	for i := 0; i < 100; i++ {
		if got := c.Classify(text); got != first {
			t.Fatalf("call %d: %q != %q", i, got, first)
		}
	}
}

func TestClassifyOrderMatters(t *testing.T) {
	// "change my billing address" mentions both billing and account words; the
	// earlier billing rule must win.
	c := NewClassifier(DefaultRules())
	if got := c.Classify("change the billing address on my account"); got != "billing" {
		t.Errorf("got %q, want billing", got)
	}

	// Reversed rule order flips the outcome, which is why the list is fixed
	// configuration.
	reversed := NewClassifier([]Rule{
		{Intent: "account", Keywords: []string{"account"}},
		{Intent: "billing", Keywords: []string{"billing"}},
	})
	if got := reversed.Classify("change the billing address on my account"); got != "account" {
		t.Errorf("got %q, want account under reversed rules", got)
	}
}

func TestClassifierCopiesRules(t *testing.T) {
	rules := []Rule{{Intent: "a", Keywords: []string{"alpha"}}}
	c := NewClassifier(rules)
	rules[0] = Rule{Intent: "b", Keywords: []string{"alpha"}}
	if got := c.Classify("alpha"); got != "a" {
		t.Errorf("got %q, external mutation leaked in", got)
	}
}
