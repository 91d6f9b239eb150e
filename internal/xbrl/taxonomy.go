package xbrl

// Fact names used to derive market capitalization from annual filings.
const (
	NamespaceDEI = "dei"

	// SharesOutstandingFact is the cover-page share count on 10-K filings.
	SharesOutstandingFact = "EntityCommonStockSharesOutstanding"

	// PublicFloatFact is the aggregate market value held by non-affiliates.
	PublicFloatFact = "EntityPublicFloat"

	UnitShares = "shares"
	UnitUSD    = "USD"
)
