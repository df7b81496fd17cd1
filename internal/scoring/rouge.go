package scoring

// ROUGE score keys.
const (
	Rouge1Recall    = "rouge-1-r"
	Rouge1Precision = "rouge-1-p"
	Rouge1F         = "rouge-1-f"
	Rouge2Recall    = "rouge-2-r"
	Rouge2Precision = "rouge-2-p"
	Rouge2F         = "rouge-2-f"
	RougeLRecall    = "rouge-l-r"
	RougeLPrecision = "rouge-l-p"
	RougeLF         = "rouge-l-f"
)

// RougeKeys lists the ROUGE keys in report order.
var RougeKeys = []string{
	Rouge1Recall, Rouge1Precision, Rouge1F,
	Rouge2Recall, Rouge2Precision, Rouge2F,
	RougeLRecall, RougeLPrecision, RougeLF,
}

// Rouge computes ROUGE-1, ROUGE-2 and ROUGE-L over whitespace tokens.
type Rouge struct{}

// Name implements Scorer.
func (Rouge) Name() string { return NameRouge }

// Keys implements Scorer.
func (Rouge) Keys() []string { return append([]string(nil), RougeKeys...) }

// Score implements Scorer. Recall is measured against the reference.
func (Rouge) Score(prediction, reference string) map[string]float64 {
	pred, ref := Tokenize(prediction), Tokenize(reference)
	out := make(map[string]float64, len(RougeKeys))

	r, p, f := ngramScore(pred, ref, 1)
	out[Rouge1Recall], out[Rouge1Precision], out[Rouge1F] = r, p, f

	r, p, f = ngramScore(pred, ref, 2)
	out[Rouge2Recall], out[Rouge2Precision], out[Rouge2F] = r, p, f

	lcs := lcsLength(pred, ref)
	r, p, f = prf(lcs, len(ref), len(pred))
	out[RougeLRecall], out[RougeLPrecision], out[RougeLF] = r, p, f
	return out
}

func ngrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		key := tokens[i]
		for _, t := range tokens[i+1 : i+n] {
			key += "\x00" + t
		}
		counts[key]++
	}
	return counts
}

func ngramScore(pred, ref []string, n int) (recall, precision, f float64) {
	predGrams, refGrams := ngrams(pred, n), ngrams(ref, n)
	overlap, predTotal, refTotal := 0, 0, 0
	for g, c := range refGrams {
		refTotal += c
		overlap += min(c, predGrams[g])
	}
	for _, c := range predGrams {
		predTotal += c
	}
	return prf(overlap, refTotal, predTotal)
}

func prf(overlap, refTotal, predTotal int) (recall, precision, f float64) {
	if refTotal > 0 {
		recall = float64(overlap) / float64(refTotal)
	}
	if predTotal > 0 {
		precision = float64(overlap) / float64(predTotal)
	}
	if recall+precision > 0 {
		f = 2 * precision * recall / (precision + recall)
	}
	return recall, precision, f
}

func lcsLength(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
