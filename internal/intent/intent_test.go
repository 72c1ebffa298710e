package intent

import "testing"

func TestClassify_ClosingPhrases(t *testing.T) {
	c := NewPhraseClassifier(nil, nil)

	cases := []string{
		"goodbye",
		"GOODBYE",
		"Well, that's all, thanks!",
		"okay thank you so much",
		"Have a Good Day",
	}
	for _, text := range cases {
		if got := c.Classify(text); got != End {
			t.Errorf("Classify(%q) = %v, want End", text, got)
		}
	}
}

func TestClassify_HesitationPhrases(t *testing.T) {
	c := NewPhraseClassifier(nil, nil)

	cases := []string{
		"I'm not sure about this",
		"it seems TOO EXPENSIVE for me",
		"let me think it over",
	}
	for _, text := range cases {
		if got := c.Classify(text); got != Hesitate {
			t.Errorf("Classify(%q) = %v, want Hesitate", text, got)
		}
	}
}

func TestClassify_EndBeatsHesitate(t *testing.T) {
	c := NewPhraseClassifier(nil, nil)

	// Contains both a hesitation phrase and a closing phrase.
	text := "I'm not sure, thank you, goodbye"
	if got := c.Classify(text); got != End {
		t.Errorf("Classify(%q) = %v, want End (priority rule)", text, got)
	}
}

func TestClassify_EmptyIsContinue(t *testing.T) {
	c := NewPhraseClassifier(nil, nil)

	for _, text := range []string{"", "   ", "\t\n"} {
		if got := c.Classify(text); got != Continue {
			t.Errorf("Classify(%q) = %v, want Continue", text, got)
		}
	}
}

func TestClassify_PlainTextIsContinue(t *testing.T) {
	c := NewPhraseClassifier(nil, nil)

	text := "tell me more about the smart home hub"
	if got := c.Classify(text); got != Continue {
		t.Errorf("Classify(%q) = %v, want Continue", text, got)
	}
}

func TestClassify_CustomPhrases(t *testing.T) {
	c := NewPhraseClassifier([]string{"hang up now"}, []string{"dubious"})

	if got := c.Classify("please HANG UP NOW"); got != End {
		t.Errorf("custom closing phrase: got %v, want End", got)
	}
	if got := c.Classify("I'm dubious about that"); got != Hesitate {
		t.Errorf("custom hesitation phrase: got %v, want Hesitate", got)
	}
	// Default phrases no longer apply once custom lists are set.
	if got := c.Classify("goodbye"); got != Continue {
		t.Errorf("default phrase with custom lists: got %v, want Continue", got)
	}
}

func TestIntentString(t *testing.T) {
	if Continue.String() != "continue" || Hesitate.String() != "hesitate" || End.String() != "end" {
		t.Errorf("unexpected Intent string values: %v %v %v", Continue, Hesitate, End)
	}
}
