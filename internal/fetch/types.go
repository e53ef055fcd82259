package fetch

// Wire types for the remote API's observation search response.

type observationsResponse struct {
	TotalResults int                 `json:"total_results"`
	Results      []observationResult `json:"results"`
}

type observationResult struct {
	ID         int64        `json:"id"`
	Location   string       `json:"location"` // "lat,lng"
	ObservedOn string       `json:"observed_on"`
	CreatedAt  string       `json:"created_at"`
	Photos     []photo      `json:"photos"`
	Taxon      *taxonResult `json:"taxon"`
	User       userResult   `json:"user"`
}

type photo struct {
	URL string `json:"url"`
}

type taxonResult struct {
	Name                string `json:"name"`
	PreferredCommonName string `json:"preferred_common_name"`
	IconicTaxonName     string `json:"iconic_taxon_name"`
}

type userResult struct {
	Login string `json:"login"`
}
