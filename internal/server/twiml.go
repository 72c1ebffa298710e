package server

import (
	"encoding/xml"
	"fmt"
)

// TwiML verb structs, limited to what the sales flow needs: speak a line,
// gather the caller's speech, loop back, or hang up. Nil verbs are omitted
// from the rendered document; the field order below is the render order.

type twimlResponse struct {
	XMLName  xml.Name       `xml:"Response"`
	Say      *twimlSay      `xml:"Say"`
	Gather   *twimlGather   `xml:"Gather"`
	Redirect *twimlRedirect `xml:"Redirect"`
	Hangup   *twimlHangup   `xml:"Hangup"`
}

type twimlSay struct {
	Voice string `xml:"voice,attr,omitempty"`
	Text  string `xml:",chardata"`
}

type twimlGather struct {
	Input         string `xml:"input,attr"`
	Action        string `xml:"action,attr"`
	SpeechTimeout string `xml:"speechTimeout,attr,omitempty"`
	SpeechModel   string `xml:"speechModel,attr,omitempty"`
	Language      string `xml:"language,attr,omitempty"`
	Hints         string `xml:"hints,attr,omitempty"`
}

type twimlRedirect struct {
	URL string `xml:",chardata"`
}

type twimlHangup struct{}

// renderTwiML marshals a response document with the XML declaration Twilio
// expects.
func renderTwiML(resp *twimlResponse) (string, error) {
	body, err := xml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("marshal twiml: %w", err)
	}
	return xml.Header + string(body), nil
}

// speakAndListen renders: say the line, gather the caller's next utterance
// into /transcribe, and loop back to /voice if they stay silent.
func (s *Server) speakAndListen(text string) (string, error) {
	return renderTwiML(&twimlResponse{
		Say: &twimlSay{Voice: s.voice, Text: text},
		Gather: &twimlGather{
			Input:         "speech",
			Action:        "/transcribe",
			SpeechTimeout: "auto",
			SpeechModel:   "experimental_conversations",
			Language:      "en-US",
			Hints:         s.hints,
		},
		Redirect: &twimlRedirect{URL: "/voice"},
	})
}

// speakAndHangup renders: say the line, then end the call.
func (s *Server) speakAndHangup(text string) (string, error) {
	return renderTwiML(&twimlResponse{
		Say:    &twimlSay{Voice: s.voice, Text: text},
		Hangup: &twimlHangup{},
	})
}
