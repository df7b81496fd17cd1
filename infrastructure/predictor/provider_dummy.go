package predictor

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/modelscope/eval-scope/internal/domain"
)

// DummyModel is the model name reported by the offline backend.
const DummyModel = "dummy"

func init() {
	RegisterBackendFactory("dummy", newDummyBackend)
}

// dummyBackend answers without a network call, in the shape the request's
// output format asks for. The same request always yields the same text.
type dummyBackend struct {
	model string
}

func newDummyBackend(cfg Config) (Backend, error) {
	model := cfg.Model
	if model == "" {
		model = DummyModel
	}
	return &dummyBackend{model: model}, nil
}

// NewDummyBackend returns the offline backend directly.
func NewDummyBackend() Backend { return &dummyBackend{model: DummyModel} }

func (b *dummyBackend) Model() string { return b.model }

func (b *dummyBackend) Generate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	rng := requestRand(req)

	var text string
	switch req.Format {
	case domain.FormatChoice:
		text = [...]string{"[[A]]", "[[B]]", "[[C]]"}[rng.IntN(3)]
	case domain.FormatRating:
		text = "Rating: [[" + strconv.Itoa(1+rng.IntN(10)) + "]]"
	default:
		text = roundedScore(rng) + " " + roundedScore(rng)
	}
	return Response{
		Text:      text,
		TokensIn:  EstimateTokens(req.System + req.Prompt),
		TokensOut: EstimateTokens(text),
	}, nil
}

func requestRand(req Request) *rand.Rand {
	h := sha256.New()
	h.Write([]byte(req.System))
	h.Write([]byte{0})
	h.Write([]byte(req.Prompt))
	h.Write([]byte{0})
	h.Write([]byte(req.Format))
	var seed [8]byte
	if req.Settings.Seed != nil {
		binary.LittleEndian.PutUint64(seed[:], uint64(*req.Settings.Seed))
	}
	h.Write(seed[:])
	sum := h.Sum(nil)
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(sum[:8]), binary.LittleEndian.Uint64(sum[8:16])))
}

func roundedScore(rng *rand.Rand) string {
	return strconv.FormatFloat(math.Round(rng.Float64()*100)/100, 'f', -1, 64)
}
