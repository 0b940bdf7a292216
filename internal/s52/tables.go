package s52

// DefaultTables seeds a small, representative set of LUPs covering
// DEPARE/DEPCNT/LIGHTS/OBSTRN/WRECKS/SOUNDG/M_COVR/RESARE/SLCONS (SPEC_FULL.md
// §4.4). All twelve default conditionals are registered; the seeded LUPs
// invoke nine of them (TOPMAR01, RESTRN01 and QUAPOS01 are not referenced).
// A production deployment loads the full S-52 LUP/condition XML
// tables through an external loader (non-core collaborator); this seed is
// what the engine ships with absent that loader.
func DefaultTables() *Tables {
	t := NewTables()
	for name, fn := range DefaultConditionals() {
		t.RegisterConditional(name, fn)
	}

	t.LoadLUPs([]*LUP{
		{
			Table:           "Standard",
			TypeCode:        "DEPARE",
			DisplayPriority: 8,
			RadarPriority:   0,
			RuleString:      "CS(DEPARE02)",
			Category:        DisplayBase,
		},
		{
			Table:           "Standard",
			TypeCode:        "DEPCNT",
			DisplayPriority: 9,
			RadarPriority:   0,
			RuleString:      "CS(DEPCNT02)",
			Category:        DisplayBase,
		},
		{
			Table:           "Standard",
			TypeCode:        "LIGHTS",
			DisplayPriority: 13,
			RadarPriority:   0,
			AttrMatch:       []AttrRequirement{{Name: "CATLIT", Value: "1"}},
			RuleString:      "CS(LIGHTS06)",
			Category:        Standard,
		},
		{
			// Fallback LIGHTS LUP with no attribute requirements — used when
			// CATLIT doesn't match the entry above (spec.md §4.4's fallback
			// rule, exercised by testable property 4/scenario S5).
			Table:           "Standard",
			TypeCode:        "LIGHTS",
			DisplayPriority: 13,
			RadarPriority:   0,
			RuleString:      "CS(LIGHTS06)",
			Category:        Standard,
		},
		{
			Table:           "Standard",
			TypeCode:        "OBSTRN",
			DisplayPriority: 11,
			RadarPriority:   1,
			RuleString:      "CS(OBSTRN04)",
			Category:        Standard,
		},
		{
			Table:           "Standard",
			TypeCode:        "WRECKS",
			DisplayPriority: 11,
			RadarPriority:   1,
			RuleString:      "CS(WRECKS02)",
			Category:        Standard,
		},
		{
			Table:           "Standard",
			TypeCode:        "SOUNDG",
			DisplayPriority: 14,
			RadarPriority:   0,
			RuleString:      "CS(SOUNDG02)",
			Category:        DisplayBase,
		},
		{
			Table:           "Standard",
			TypeCode:        "M_COVR",
			DisplayPriority: 1,
			RadarPriority:   0,
			RuleString:      "CS(DATCVR01)",
			Category:        DisplayBase,
		},
		{
			Table:           "Standard",
			TypeCode:        "RESARE",
			DisplayPriority: 10,
			RadarPriority:   0,
			RuleString:      "CS(RESARE02)",
			Category:        Standard,
		},
		{
			Table:           "Standard",
			TypeCode:        "SLCONS",
			DisplayPriority: 12,
			RadarPriority:   1,
			RuleString:      "CS(SLCONS03)",
			Category:        Standard,
		},
	})

	return t
}
