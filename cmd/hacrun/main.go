// Command hacrun runs bottom-up clustering on a synthetic over-segmented
// conversation and prints the merge history, a quick way to eyeball how the
// penalty coefficient and contiguity tolerance shape the result.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/chronolab/chronoclust/internal/annotation"
	"github.com/chronolab/chronoclust/internal/feature"
	"github.com/chronolab/chronoclust/internal/gaussian"
	"github.com/chronolab/chronoclust/internal/hac"
	"github.com/chronolab/chronoclust/internal/timeline"
	"github.com/chronolab/chronoclust/internal/version"
)

func main() {
	speakers := flag.Int("speakers", 3, "number of synthetic speakers")
	turns := flag.Int("turns", 4, "speech turns per speaker")
	turnLen := flag.Float64("turn-len", 30, "turn duration in seconds")
	dim := flag.Int("dim", 3, "feature dimension")
	penalty := flag.Float64("penalty", gaussian.DefaultPenaltyCoef, "BIC penalty coefficient (lambda)")
	tolerance := flag.Float64("tolerance", -1, "contiguity tolerance in seconds (< 0 disables the constraint)")
	covName := flag.String("cov", "full", "covariance type: full or diag")
	seed := flag.Int64("seed", 1, "random seed")
	verbose := flag.Bool("v", false, "log every candidate and merge")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("hacrun", version.String())
		return
	}

	covType := gaussian.Full
	switch *covName {
	case "full":
	case "diag":
		covType = gaussian.Diagonal
	default:
		log.Fatalf("unknown covariance type %q", *covName)
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatalf("logger: %v", err)
		}
		defer l.Sync()
		logger = l
	}

	ann, feats := synthesize(*speakers, *turns, *turnLen, *dim, *seed)

	model := hac.NewBIC(covType)
	model.PenaltyCoef = *penalty
	opts := []hac.Option{hac.WithLogger(logger)}
	if *tolerance >= 0 {
		opts = append(opts, hac.WithConstraint(hac.NewContiguity(*tolerance)))
	}
	engine, err := hac.New(model, opts...)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}

	final, hist, err := engine.Cluster(ann, feats)
	if err != nil {
		log.Fatalf("clustering: %v", err)
	}

	fmt.Printf("run %s: %d segments, %d -> %d clusters in %d merges\n",
		hist.RunID(), ann.Timeline().Len(), len(ann.Labels()), len(final.Labels()), hist.Len())
	for i, it := range hist.Iterations() {
		fmt.Printf("  #%02d %s\n", i+1, it)
	}
	fmt.Println("final clusters:")
	for _, l := range final.Labels() {
		cov := final.LabelCoverage(l)
		fmt.Printf("  %-6s %7.1fs in %d segments, extent %s\n",
			l, final.LabelDuration(l), cov.Len(), cov.Extent())
	}
}

// synthesize builds a round-robin conversation of Gaussian speakers, with
// every turn split in two so the clustering has something to undo.
func synthesize(speakers, turns int, turnLen float64, dim int, seed int64) (*annotation.Annotation, feature.Provider) {
	rng := rand.New(rand.NewSource(seed))

	// One mean per speaker, spread far enough apart to be separable.
	means := make([][]float64, speakers)
	for s := range means {
		means[s] = make([]float64, dim)
		for j := range means[s] {
			means[s][j] = float64(6*s) + rng.NormFloat64()
		}
	}

	frames := speakers * turns * int(turnLen)
	data := mat.NewDense(frames, dim, nil)
	ann := annotation.New("synthetic", "speaker")
	alloc := annotation.NewAllocator()

	t := 0.0
	frame := 0
	for turn := 0; turn < speakers*turns; turn++ {
		s := turn % speakers
		for i := 0; i < int(turnLen); i++ {
			for j := 0; j < dim; j++ {
				data.Set(frame, j, means[s][j]+rng.NormFloat64())
			}
			frame++
		}
		// Over-segment: two anonymous labels per turn.
		half := turnLen / 2
		for _, seg := range []timeline.Segment{
			timeline.NewSegment(t, t+half),
			timeline.NewSegment(t+half, t+turnLen),
		} {
			if err := ann.PutLabel(seg, alloc.Next()); err != nil {
				log.Fatalf("synthesize: %v", err)
			}
		}
		t += turnLen
	}

	feats, err := feature.NewSlidingWindowFeature(
		feature.SlidingWindow{Start: 0, Step: 1, Duration: 1}, data)
	if err != nil {
		log.Fatalf("synthesize: %v", err)
	}
	return ann, feats
}
