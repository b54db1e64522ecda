package extractor

// ExtractParam tunes the content-scoring heuristic (layer 3 of Extract)
// and the isMeaningful check every layer applies. A LinkDensityThreshold
// of 0 penalises any candidate that contains link text, and a
// BodySpecificityBias of 0 lets any child candidate scoring above 90% of
// <body>'s score replace <body>.
type ExtractParam struct {
	BodySpecificityBias float64
	LinkDensityThreshold float64
	ScoreMultiplier      ContentScoreMultiplier
	Threshold            MeaningfulThreshold
}

// ContentScoreMultiplier holds the per-feature weights calculateContentScore
// applies when scoring a candidate content container.
type ContentScoreMultiplier struct {
	NonWhitespaceDivisor float64
	Paragraphs           float64
	Headings             float64
	CodeBlocks           float64
	ListItems            float64
}

// MeaningfulThreshold holds the minimums isMeaningful checks a candidate
// node against.
type MeaningfulThreshold struct {
	MinNonWhitespace    int
	MinHeadings         int
	MinParagraphsOrCode int
	MaxLinkDensity      float64
}

// DefaultExtractParam returns the default weights and thresholds for
// calculateContentScore and isMeaningful.
func DefaultExtractParam() ExtractParam {
	return ExtractParam{
		BodySpecificityBias:  0.75,
		LinkDensityThreshold: 0.5,
		ScoreMultiplier: ContentScoreMultiplier{
			NonWhitespaceDivisor: 50,
			Paragraphs:           5,
			Headings:             10,
			CodeBlocks:           15,
			ListItems:            2,
		},
		Threshold: MeaningfulThreshold{
			MinNonWhitespace:    50,
			MinHeadings:         0,
			MinParagraphsOrCode: 1,
			MaxLinkDensity:      0.8,
		},
	}
}
