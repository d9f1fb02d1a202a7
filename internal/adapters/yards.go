package adapters

import (
	"github.com/williampepple1/salvage-yard-monitor/internal/extraction"
)

// NewFenix creates the Fenix U Pull adapter (New York and Georgia yards)
func NewFenix(deps Deps) *PageAdapter {
	rules := extraction.SiteRules{
		Location: extraction.Rules{
			extraction.Literal("Elmira, NY", `(?i)Elmira,\s*NY`),
			extraction.Literal("Binghamton, NY", `(?i)Binghamton,\s*NY`),
			extraction.Literal("East Syracuse, NY", `(?i)East Syracuse,\s*NY`),
			extraction.Literal("Moultrie, GA", `(?i)Moultrie,\s*GA`),
		},
		Yard:        extraction.YardPatterns(`Fenix\s+U\s+Pull`),
		DefaultYard: "Fenix U Pull",
	}
	return newPageAdapter(
		Info{Name: "fenix", DisplayName: "Fenix U Pull"},
		deps,
		"https://fenixupull.com/inventory/?location=elmira-ny%2Cbinghamton-ny%2Ceast-syracuse-ny%2Cmoultrie-ga&make=HONDA&model=INSIGHT",
		rules,
	)
}

var nebraskaCities = []string{
	"Omaha", "Lincoln", "Grand Island", "Kearney", "Fremont",
	"Hastings", "North Platte", "Norfolk", "Columbus",
}

// NewUWrenchIt creates the UWrenchIt Nebraska adapter
func NewUWrenchIt(deps Deps) *PageAdapter {
	var location extraction.Rules
	for _, city := range nebraskaCities {
		location = append(location, extraction.Literal(city+", NE", `(?i)\b`+city+`\b`))
	}
	location = append(location, extraction.Literal("Nebraska", `(?i)\bnebraska\b`))

	yard := extraction.Rules{
		extraction.R("brand-branch", `(?i)UWrenchIt\s*Nebraska[ \t]*-?[ \t]*([A-Za-z][A-Za-z ]*)`, 1),
		extraction.R("brand", `(?i)(UWrenchIt\s*Nebraska)`, 1),
		extraction.R("spaced-brand", `(?i)U\s*Wrench\s*It[ \t]*([A-Za-z][A-Za-z ]*)`, 1),
	}
	rules := extraction.SiteRules{
		Location:    location,
		Yard:        yard.Then(extraction.YardPatterns(`UWrenchIt`)[2:], extraction.LabelledLocation[:1]),
		DefaultYard: "UWrenchIt Nebraska",
	}
	return newPageAdapter(
		Info{Name: "uwrenchit", DisplayName: "UWrenchIt Nebraska"},
		deps,
		"https://uwrenchitnebraska.com/inventory-search/?make=HONDA&model=INSIGHT",
		rules,
	)
}

// NewKennyUPull creates the Kenny U-Pull adapter
func NewKennyUPull(deps Deps) *PageAdapter {
	branch := extraction.R("branch", `(?i)Branch\s*:?\s*([A-Za-z][A-Za-z ]*)`, 1)
	rules := extraction.SiteRules{
		Location: extraction.Rules{
			extraction.R("brand-branch", `(?i)Kenny\s+U-Pull[ \t]+([A-Za-z][A-Za-z ]*)`, 1),
			branch,
			extraction.LabelledLocation[0],
		},
		Yard: extraction.Rules{
			extraction.R("brand-branch", `(?i)Kenny\s+U-Pull[ \t]*-?[ \t]*([A-Za-z][A-Za-z ]*)`, 1),
			extraction.R("brand", `(?i)(Kenny\s+U-Pull)`, 1),
			branch,
		}.Then(extraction.YardPatterns(`Kenny`)[2:]),
		DefaultYard: "Kenny U-Pull",
	}
	return newPageAdapter(
		Info{Name: "kenny_upull", DisplayName: "Kenny U-Pull"},
		deps,
		"https://kennyupull.com/auto-parts/our-inventory/?nb_items=14&sort=date&input-select-brand-524910959-auto-parts=HONDA&brand=honda&input-select-model-534223925-auto-parts=INSIGHT&model=insight&input-select-model_year-1171172598-auto-parts=&input-select-branch-2092418878-auto-parts=#search-filters",
		rules,
	)
}

// NewUPullPay creates the U-Pull & Pay adapter
func NewUPullPay(deps Deps) *PageAdapter {
	brand := `U-Pull\s*&\s*Pay`
	rules := extraction.SiteRules{
		Location: extraction.Rules{
			extraction.R("brand-branch", `(?i)`+brand+`[ \t]*-?[ \t]*([A-Za-z][A-Za-z ]*)`, 1),
			extraction.LabelledLocation[0],
			extraction.R("yard-label", `(?i)Yard\s*:?\s*([A-Za-z][A-Za-z ,]*)`, 1),
		},
		Yard: extraction.YardPatterns(brand).Then(extraction.Rules{
			extraction.R("facility-label", `(?i)Facility\s*:?\s*([A-Za-z0-9][A-Za-z0-9 ]*)`, 1),
		}),
		DefaultYard: "U-Pull & Pay",
	}
	return newPageAdapter(
		Info{Name: "upull_pay", DisplayName: "U-Pull & Pay"},
		deps,
		"https://www.upullandpay.com/inventory/search/?Locations=5%2C13&MakeID=27&Models=709&Years=2006%2C2005%2C2004%2C2003%2C2002%2C2001%2C2000%2C1999&LocationPage=false&LocationID=0",
		rules,
	)
}
