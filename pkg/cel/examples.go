package cel

// RuleRecordConstraints is the strict output schema for AI-extracted rule records.
var RuleRecordConstraints = []Constraint{
	{
		Name:       "known_fields",
		Expression: `record.all(k, k in ["type", "pattern", "action", "unless_contains", "notes", "confidence"])`,
	},
	{
		Name:       "type_enum",
		Expression: `has(record.type) && type(record.type) == string && record.type in ["EMAIL", "DOMAIN", "TOPIC"]`,
	},
	{
		Name:       "pattern_non_empty",
		Expression: `has(record.pattern) && type(record.pattern) == string && record.pattern.matches("\\S")`,
	},
	{
		Name:       "action_enum",
		Expression: `has(record.action) && type(record.action) == string && record.action in ["VIP", "SUPPRESS"]`,
	},
	{
		Name:       "unless_contains_string",
		Expression: `!has(record.unless_contains) || type(record.unless_contains) in [string, null_type]`,
	},
	{
		Name:       "notes_string",
		Expression: `!has(record.notes) || type(record.notes) in [string, null_type]`,
	},
	{
		Name: "confidence_range",
		Expression: `!has(record.confidence) || type(record.confidence) == null_type ||
			(type(record.confidence) == double && record.confidence >= 0.0 && record.confidence <= 1.0)`,
	},
}
