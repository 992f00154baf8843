package matcher

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/emersion/go-message/mail"
)

const (
	UnknownSender = "Unknown"
	UnknownEmail  = "unknown"
)

// Participant is a decoded sender. Decoding never fails.
type Participant struct {
	Sender      string `json:"sender"`
	SenderEmail string `json:"sender_email"`
}

// Subject is the typed view of a thread that rules are evaluated against.
type Subject struct {
	Sender      string `json:"sender"`
	SenderEmail string `json:"sender_email"`
	Title       string `json:"title"`
}

// NewSubject decodes the raw participant encoding of a thread. Call it once at the storage boundary.
func NewSubject(participantsRaw, title string) Subject {
	p := ParseParticipant(participantsRaw)
	return Subject{
		Sender:      p.Sender,
		SenderEmail: p.SenderEmail,
		Title:       title,
	}
}

// Domain returns the part of SenderEmail after the last "@", or "" when there is none.
func (s Subject) Domain() string {
	return DomainOf(s.SenderEmail)
}

func DomainOf(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}

var angleAddr = regexp.MustCompile(`<\s*([^<>\s]+@[^<>\s]+)\s*>`)

// ParseParticipant decodes a participant field that is either a JSON array of
// address strings (the first entry is the sender) or a single address string.
func ParseParticipant(raw string) Participant {
	candidate := strings.TrimSpace(raw)
	if candidate == "" || candidate == "null" {
		return unknownParticipant()
	}

	if strings.HasPrefix(candidate, "[") {
		first, ok := firstArrayEntry(candidate)
		if ok {
			if first.SenderEmail != "" {
				return first
			}
			candidate = strings.TrimSpace(first.Sender)
			if candidate == "" {
				return unknownParticipant()
			}
		}
	}

	if addr, err := mail.ParseAddress(candidate); err == nil && addr.Address != "" {
		name := strings.TrimSpace(addr.Name)
		if name == "" {
			name = addr.Address
		}
		return Participant{Sender: name, SenderEmail: strings.ToLower(addr.Address)}
	}

	if m := angleAddr.FindStringSubmatchIndex(candidate); m != nil {
		email := candidate[m[2]:m[3]]
		name := strings.Trim(strings.TrimSpace(candidate[:m[0]]), `"'`)
		if name == "" {
			name = email
		}
		return Participant{Sender: name, SenderEmail: strings.ToLower(email)}
	}

	return Participant{Sender: candidate, SenderEmail: strings.ToLower(candidate)}
}

// firstArrayEntry returns ok=false when raw is not a JSON array. A non-empty
// SenderEmail means the entry was a structured {name, email} object.
func firstArrayEntry(raw string) (Participant, bool) {
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return Participant{}, false
	}
	if len(entries) == 0 {
		return Participant{}, true
	}

	var s string
	if err := json.Unmarshal(entries[0], &s); err == nil {
		return Participant{Sender: s}, true
	}

	var obj struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(entries[0], &obj); err == nil && strings.TrimSpace(obj.Email) != "" {
		email := strings.ToLower(strings.TrimSpace(obj.Email))
		name := strings.TrimSpace(obj.Name)
		if name == "" {
			name = email
		}
		return Participant{Sender: name, SenderEmail: email}, true
	}

	return Participant{Sender: string(entries[0])}, true
}

func unknownParticipant() Participant {
	return Participant{Sender: UnknownSender, SenderEmail: UnknownEmail}
}
