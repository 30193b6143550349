package aggregator

import "github.com/shopspring/decimal"

// UserClass is the persona assigned from post-dedup count and volume.
type UserClass struct {
	Class       string `json:"class"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Rarity      int    `json:"rarity"`
}

var (
	classNoob = UserClass{
		Class:       "crosschain-noob",
		Title:       "The Cross-chain Noob",
		Description: "You're new to the game, aren't you? You haven't done much bridging, and your on-chain volume is practically invisible. We have to ask: Are you actually a degen, or just a tourist?",
		Rarity:      1,
	}
	classJoe = UserClass{
		Class:       "standard-joe",
		Title:       "The Standard Joe",
		Description: "You have an average number of bridges with decent volume. You aren't a legend, and you aren't a noob. You're just like the rest of us: aggressively mid.",
		Rarity:      2,
	}
	classElf = UserClass{
		Class:       "working-elf",
		Title:       "The Working Elf",
		Description: "You bridge constantly, but your bags are light. You're a tireless laborer in a world of whales, the kind of person who seemingly enjoys the pain of a thousand tiny transactions. A true glutton for punishment.",
		Rarity:      3,
	}
	classCalculatedWhale = UserClass{
		Class:       "calculated-whale",
		Title:       "The Calculated Whale",
		Description: "You have a clear history of moving weight, but only when the time is right. Every bridge you cross is a strategic play, not a random hop. A surgical strategist, eh? We see you.",
		Rarity:      4,
	}
	classFarmerWhale = UserClass{
		Class:       "farmer-whale",
		Title:       "The Farmer Whale",
		Description: "You move massive volume, and you do it often. You're a rare breed of high-velocity capital, constantly chasing the best yields across every chain. If there's a harvest to be had, you're already there.",
		Rarity:      5,
	}
)

var (
	perTxWhale = decimal.NewFromInt(10_000)
	totalWhale = decimal.NewFromInt(20_000)
)

// Classify picks the persona. Rules are checked in order and the first match wins.
func Classify(count int, totalUSD decimal.Decimal) UserClass {
	avg := decimal.Zero
	if count > 0 {
		avg = totalUSD.Div(decimal.NewFromInt(int64(count)))
	}
	small := avg.LessThan(perTxWhale) && totalUSD.LessThan(totalWhale)
	large := avg.GreaterThan(perTxWhale) && totalUSD.GreaterThan(totalWhale)

	switch {
	case count < 10 && small:
		return classNoob
	case count > 50 && small:
		return classElf
	case count < 20 && large:
		return classCalculatedWhale
	case count > 20 && large:
		return classFarmerWhale
	default:
		return classJoe
	}
}
