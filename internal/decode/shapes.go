package decode

import (
	"encoding/json"

	"github.com/tjfontaine/polyglot-providers/internal/domain"
)

// Embedding shapes, in priority order.
//
// multi and single share the "embeddings" key; a list of lists cannot decode as
// a list of numbers and vice versa, so at most one of them matches.
var (
	EmbeddingMulti = Candidate[[][]float64]{Name: "embeddings[][]", Parse: func(body []byte) ([][]float64, error) {
		fields, err := objectFields(body)
		if err != nil {
			return nil, err
		}
		return decodeField[[][]float64](fields, "embeddings")
	}}

	EmbeddingSingle = Candidate[[][]float64]{Name: "embeddings[]", Parse: func(body []byte) ([][]float64, error) {
		fields, err := objectFields(body)
		if err != nil {
			return nil, err
		}
		vec, err := decodeField[[]float64](fields, "embeddings")
		if err != nil {
			return nil, err
		}
		return [][]float64{vec}, nil
	}}

	EmbeddingBare = Candidate[[][]float64]{Name: "[][]", Parse: func(body []byte) ([][]float64, error) {
		var vecs [][]float64
		if err := json.Unmarshal(body, &vecs); err != nil {
			return nil, noMatch("not a list of vectors: %v", err)
		}
		if vecs == nil {
			return nil, noMatch("null body")
		}
		return vecs, nil
	}}

	// EmbeddingData matches the OpenAI-compatible {"data":[{"embedding","index"}]}
	// shape and restores input order from the index field.
	EmbeddingData = Candidate[[][]float64]{Name: "data[].embedding", Parse: parseEmbeddingData}
)

// TEIEmbeddingShapes is the ordered candidate list for the TEI embed endpoint.
var TEIEmbeddingShapes = []Candidate[[][]float64]{EmbeddingMulti, EmbeddingSingle, EmbeddingBare}

type embeddingDatum struct {
	Embedding []float64 `json:"embedding"`
	Index     *int      `json:"index"`
}

func parseEmbeddingData(body []byte) ([][]float64, error) {
	fields, err := objectFields(body)
	if err != nil {
		return nil, err
	}
	data, err := decodeField[[]embeddingDatum](fields, "data")
	if err != nil {
		return nil, err
	}

	indexed := 0
	for _, d := range data {
		if d.Embedding == nil {
			return nil, Invariant("data item without embedding")
		}
		if d.Index != nil {
			indexed++
		}
	}

	vecs := make([][]float64, len(data))
	switch indexed {
	case 0:
		for i, d := range data {
			vecs[i] = d.Embedding
		}
	case len(data):
		for _, d := range data {
			i := *d.Index
			if i < 0 || i >= len(data) {
				return nil, Invariant("embedding index %d out of range [0,%d)", i, len(data))
			}
			if vecs[i] != nil {
				return nil, Invariant("duplicate embedding index %d", i)
			}
			vecs[i] = d.Embedding
		}
	default:
		return nil, Invariant("%d of %d embeddings carry an index", indexed, len(data))
	}
	return vecs, nil
}

// TEIEmbeddings decodes a TEI embed body and checks it has one vector per input.
func TEIEmbeddings(body []byte, inputs int) ([][]float64, error) {
	vecs, err := First(body, TEIEmbeddingShapes...)
	if err != nil {
		return nil, err
	}
	if err := CheckCount("embeddings", len(vecs), inputs); err != nil {
		return nil, err
	}
	return vecs, nil
}

type nestedRerankItem struct {
	Index          *int     `json:"index"`
	RelevanceScore *float64 `json:"relevance_score"`
	Document       *struct {
		Text string `json:"text"`
	} `json:"document"`
}

// RerankNested matches {"output":{"results":[{index, relevance_score, document?}]}}.
var RerankNested = Candidate[[]domain.RerankResult]{Name: "output.results", Parse: func(body []byte) ([]domain.RerankResult, error) {
	fields, err := objectFields(body)
	if err != nil {
		return nil, err
	}
	raw, ok := present(fields, "output")
	if !ok {
		return nil, noMatch(`missing "output"`)
	}
	output, err := objectFields(raw)
	if err != nil {
		return nil, err
	}
	items, err := decodeField[[]nestedRerankItem](output, "results")
	if err != nil {
		return nil, err
	}

	results := make([]domain.RerankResult, len(items))
	for i, item := range items {
		if item.Index == nil || item.RelevanceScore == nil {
			return nil, Invariant("result %d missing index or relevance_score", i)
		}
		results[i] = domain.RerankResult{Index: *item.Index, RelevanceScore: *item.RelevanceScore}
		if item.Document != nil {
			results[i].Text = item.Document.Text
		}
	}
	return results, nil
}}

type flatRerankItem struct {
	Index          *int     `json:"index"`
	Score          *float64 `json:"score"`
	RelevanceScore *float64 `json:"relevance_score"`
	Text           *string  `json:"text"`
}

// RerankFlat matches a bare list [{index, score|relevance_score, text?}].
var RerankFlat = Candidate[[]domain.RerankResult]{Name: "[]{index,score}", Parse: func(body []byte) ([]domain.RerankResult, error) {
	var items []flatRerankItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, noMatch("not a list of results: %v", err)
	}
	if items == nil {
		return nil, noMatch("null body")
	}

	results := make([]domain.RerankResult, len(items))
	for i, item := range items {
		score := item.RelevanceScore
		if score == nil {
			score = item.Score
		}
		if item.Index == nil || score == nil {
			return nil, Invariant("result %d missing index or score", i)
		}
		results[i] = domain.RerankResult{Index: *item.Index, RelevanceScore: *score}
		if item.Text != nil {
			results[i].Text = *item.Text
		}
	}
	return results, nil
}}

// CheckRerankIndices verifies every result points inside the caller's input list.
func CheckRerankIndices(results []domain.RerankResult, inputs int) error {
	for _, r := range results {
		if r.Index < 0 || r.Index >= inputs {
			return domain.NewDecodeError("rerank index out of range",
				Invariant("index %d, %d documents", r.Index, inputs))
		}
	}
	return nil
}

type labelScore struct {
	Label *string  `json:"label"`
	Score *float64 `json:"score"`
}

func labelScores(fields map[string]json.RawMessage, key string) ([]domain.LabelScore, error) {
	raw, err := decodeField[[]labelScore](fields, key)
	if err != nil {
		return nil, err
	}
	items := make([]domain.LabelScore, len(raw))
	for i, ls := range raw {
		if ls.Label == nil || ls.Score == nil {
			return nil, noMatch("%s[%d] missing label or score", key, i)
		}
		items[i] = domain.LabelScore{Label: *ls.Label, Score: *ls.Score}
	}
	return items, nil
}

// Predict shapes, in priority order.
var (
	PredictItems = Candidate[[]domain.LabelScore]{Name: "items", Parse: func(body []byte) ([]domain.LabelScore, error) {
		fields, err := objectFields(body)
		if err != nil {
			return nil, err
		}
		return labelScores(fields, "items")
	}}

	PredictPredictions = Candidate[[]domain.LabelScore]{Name: "predictions", Parse: func(body []byte) ([]domain.LabelScore, error) {
		fields, err := objectFields(body)
		if err != nil {
			return nil, err
		}
		return labelScores(fields, "predictions")
	}}

	// PredictArrays pairs parallel labels and scores arrays. Unequal lengths are
	// an invariant failure, never a truncation.
	PredictArrays = Candidate[[]domain.LabelScore]{Name: "labels+scores", Parse: func(body []byte) ([]domain.LabelScore, error) {
		fields, err := objectFields(body)
		if err != nil {
			return nil, err
		}
		labels, err := decodeField[[]string](fields, "labels")
		if err != nil {
			return nil, err
		}
		scores, err := decodeField[[]float64](fields, "scores")
		if err != nil {
			return nil, err
		}
		if len(labels) != len(scores) {
			return nil, Invariant("labels and scores length mismatch: %d labels, %d scores", len(labels), len(scores))
		}
		items := make([]domain.LabelScore, len(labels))
		for i := range labels {
			items[i] = domain.LabelScore{Label: labels[i], Score: scores[i]}
		}
		return items, nil
	}}
)

// PredictShapes is the ordered candidate list for predict responses. Unlike
// embeddings there is no bare-array form.
var PredictShapes = []Candidate[[]domain.LabelScore]{PredictItems, PredictPredictions, PredictArrays}
