package management

import (
	"fmt"

	"triage/internal/rules"
)

const maxRuleTextLength = 2000

// ValidateParseRequest leaves empty text to the parser, which reports it as a parse error.
func ValidateParseRequest(req ParseRuleRequest) error {
	if req.DefaultAction != nil && !req.DefaultAction.Valid() {
		return fmt.Errorf("invalid default_action: %q (valid: %s, %s)", *req.DefaultAction, rules.ActionVIP, rules.ActionSuppress)
	}
	if len(req.Text) > maxRuleTextLength {
		return fmt.Errorf("text must be at most %d characters", maxRuleTextLength)
	}
	return nil
}

func ValidateParserSettings(req UpdateParserSettingsRequest) error {
	if req.DefaultAction == nil && req.AIFallbackEnabled == nil {
		return fmt.Errorf("at least one setting must be provided")
	}
	if req.DefaultAction != nil && !req.DefaultAction.Valid() {
		return fmt.Errorf("invalid default_action: %q (valid: %s, %s)", *req.DefaultAction, rules.ActionVIP, rules.ActionSuppress)
	}
	return nil
}
