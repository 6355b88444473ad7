package classifier

import "RingsideSync/internal/domain"

// DefaultBreakingKeywords flag urgency independently of category.
var DefaultBreakingKeywords = []string{"breaking", "exclusive", "confirmed", "urgent", "just in"}

// DefaultConfig is the built-in rule set, in precedence order.
func DefaultConfig() Config {
	return Config{
		Rules: []Rule{
			{Category: domain.CategoryBreaking, Keywords: DefaultBreakingKeywords},
			{Category: domain.CategoryResults, Keywords: []string{
				"results", "recap", "defeats", "defeated", "retains", "retained", "wins", "won", "winner", "live coverage",
			}},
			{Category: domain.CategoryRumor, Keywords: []string{
				"rumor", "rumors", "rumour", "speculation", "reportedly", "sources say", "backstage talk", "plans for",
			}},
			{Category: domain.CategoryAnalysis, Keywords: []string{
				"analysis", "opinion", "editorial", "column", "deep dive", "breakdown", "power rankings",
			}},
			{Category: domain.CategoryInjury, Keywords: []string{
				"injury", "injured", "surgery", "concussion", "sidelined", "out of action",
			}},
			{Category: domain.CategoryContract, Keywords: []string{
				"contract", "signs", "signed", "signing", "re-signs", "free agent", "released", "extension",
			}},
		},
		BreakingKeywords: append([]string(nil), DefaultBreakingKeywords...),
		Promotions: map[string][]string{
			"WWE":     {"world wrestling entertainment", "smackdown", "nxt", "wrestlemania"},
			"AEW":     {"all elite wrestling", "dynamite", "rampage"},
			"NJPW":    {"new japan pro-wrestling", "new japan pro wrestling", "new japan", "wrestle kingdom"},
			"TNA":     {"total nonstop action", "impact wrestling"},
			"ROH":     {"ring of honor"},
			"NWA":     {"national wrestling alliance"},
			"Stardom": {"world wonder ring stardom"},
			"CMLL":    {"consejo mundial de lucha libre"},
		},
	}
}
