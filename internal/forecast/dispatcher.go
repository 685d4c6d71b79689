package forecast

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/demandforge/invforecast/internal/budget"
	"github.com/demandforge/invforecast/internal/domain"
	"github.com/demandforge/invforecast/internal/features"
	"github.com/demandforge/invforecast/internal/ferr"
	"github.com/demandforge/invforecast/internal/ingest"
)

// parallelThreshold is the mode-selection cutoff: more than this many
// distinct SKUs uses the parallel path, otherwise the single-model path.
const parallelThreshold = 10

// maxWorkers bounds the worker pool at min(available_cores, 8).
func maxWorkers() int64 {
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return int64(n)
}

// Request bundles the dispatcher's inputs for one forecast run.
type Request struct {
	Frame       domain.CleanFrame
	Encoders    *features.Manager
	HorizonDays int
	Granularity domain.Granularity
	Strategy    Strategy
	Cancel      *int32 // shared atomic cancellation flag; nil means never cancelled
}

// Dispatch runs the per-SKU fit-predict fan-out, choosing the parallel
// or single-model path by SKU count, and returns the aggregated
// ForecastBundle.
func Dispatch(ctx context.Context, req Request) (domain.ForecastBundle, error) {
	skus := req.Frame.SKUs()

	bundle := domain.ForecastBundle{
		Point:       make(map[string][]float64),
		Upper:       make(map[string][]float64),
		Lower:       make(map[string][]float64),
		Metadata:    make(map[string]domain.ResultMetadata),
		Skipped:     make(map[string]string),
		Granularity: req.Granularity,
		Horizon:     req.HorizonDays,
		RunAt:       time.Now().UTC(),
	}

	if isCancelled(req.Cancel) {
		return bundle, &ferr.Cancelled{}
	}

	var results []domain.ForecastResult
	var err error
	if len(skus) > parallelThreshold {
		results, err = dispatchParallel(ctx, req, skus)
	} else {
		results, err = dispatchSingleModel(req, skus)
	}
	if err != nil {
		return bundle, err
	}

	for _, r := range results {
		if r.ErrorReason != "" {
			bundle.Skipped[r.SKU] = r.ErrorReason
			continue
		}
		bundle.SKUs = append(bundle.SKUs, r.SKU)
		bundle.Point[r.SKU] = r.Point
		bundle.Upper[r.SKU] = r.Upper
		bundle.Lower[r.SKU] = r.Lower
		bundle.Metadata[r.SKU] = r.Metadata
		if bundle.Dates == nil {
			bundle.Dates = r.FutureDates
		}
	}
	sort.Strings(bundle.SKUs) // deterministic column order regardless of completion order

	if isCancelled(req.Cancel) {
		return bundle, &ferr.Cancelled{}
	}
	return bundle, nil
}

func isCancelled(flag *int32) bool {
	if flag == nil {
		return false
	}
	return atomic.LoadInt32(flag) != 0
}

// dispatchParallel runs a bounded pool of min(cores,8) workers, each
// processing one SKU with panic isolation so a single worker's failure
// never aborts its peers.
func dispatchParallel(ctx context.Context, req Request, skus []string) ([]domain.ForecastResult, error) {
	sem := semaphore.NewWeighted(maxWorkers())
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make([]domain.ForecastResult, 0, len(skus))

	for _, sku := range skus {
		// Checked between dispatching each worker; once observed, no new
		// tasks are submitted and the dispatcher waits for in-flight
		// workers to drain below.
		if isCancelled(req.Cancel) {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(sku string) {
			defer wg.Done()
			defer sem.Release(1)
			result := runWorker(req, sku)
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(sku)
	}
	wg.Wait()
	return results, nil
}

// runWorker builds one SKU's package from the frame and hands it to
// fitPredict, which recovers panics raised during the fit-predict steps.
// BuildPackage itself runs outside that recovery.
func runWorker(req Request, sku string) domain.ForecastResult {
	pkg := BuildPackage(sku, req.Frame, req.Encoders, req.HorizonDays, req.Granularity)
	return fitPredict(req, sku, pkg)
}

// runWorkerFromPivot is the single-model path's counterpart to runWorker:
// it builds its package from one column of a pivot matrix computed once
// for the whole run instead of re-scanning the frame per SKU.
func runWorkerFromPivot(req Request, sku string, col int, dates []time.Time, matrix [][]float64) domain.ForecastResult {
	pkg := BuildPackageFromPivot(sku, col, dates, matrix, req.Frame, req.Encoders, req.HorizonDays, req.Granularity)
	return fitPredict(req, sku, pkg)
}

// fitPredict runs the fit-predict steps shared by both dispatch paths,
// recovering any panic at this adapter boundary and converting it to a
// ForecastFailed skip reason so one SKU's failure never aborts the run.
func fitPredict(req Request, sku string, pkg domain.ForecastPackage) (result domain.ForecastResult) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.ForecastResult{SKU: sku, ErrorReason: fmt.Sprintf("panic: %v", r)}
		}
	}()

	endogenous := budget.Sanitize(pkg.Endogenous)
	sum := 0.0
	for _, v := range endogenous {
		sum += v
	}
	if sum == 0 {
		return domain.ForecastResult{SKU: sku, ErrorReason: "series sums to zero (all-zeros)"}
	}

	exogenous := pkg.Exogenous
	future := pkg.FutureExogenous
	if !overlapsEnough(pkg.Dates, pkg.ExogenousDates) {
		exogenous = nil
		future = nil
	}

	fitted, err := req.Strategy.Fit(FitInput{
		Endogenous:      endogenous,
		Exogenous:       exogenous,
		Horizon:         pkg.HorizonPeriods,
		Frequency:       pkg.Granularity,
		MinTrainPercent: minTrainPercent(pkg.HorizonPeriods, len(endogenous)),
	})
	if err != nil {
		return domain.ForecastResult{SKU: sku, ErrorReason: err.Error()}
	}

	out, err := req.Strategy.Predict(fitted, future)
	if err != nil {
		return domain.ForecastResult{SKU: sku, ErrorReason: err.Error()}
	}

	summary := req.Strategy.FitSummary(fitted)
	futureDates := futurePeriods(lastDate(pkg.Dates), pkg.HorizonPeriods, pkg.Granularity)

	return domain.ForecastResult{
		SKU:         sku,
		FutureDates: futureDates,
		Point:       budget.Sanitize(out.Point),
		Upper:       budget.Sanitize(out.Upper),
		Lower:       budget.Sanitize(out.Lower),
		Metadata: domain.ResultMetadata{
			DataPointsUsed:   summary.DataPointsUsed,
			FeatureCount:     len(pkg.FeatureNames),
			SeasonalityFlags: summary.SeasonalityFlags,
		},
	}
}

func lastDate(dates []time.Time) time.Time {
	if len(dates) == 0 {
		return time.Now().UTC()
	}
	return dates[len(dates)-1]
}

// overlapsEnough applies the 50% overlap rule between endogenous and
// exogenous indices.
func overlapsEnough(endoDates, exoDates []time.Time) bool {
	if len(endoDates) == 0 || len(exoDates) == 0 {
		return false
	}
	set := make(map[time.Time]struct{}, len(exoDates))
	for _, d := range exoDates {
		set[d] = struct{}{}
	}
	overlap := 0
	for _, d := range endoDates {
		if _, ok := set[d]; ok {
			overlap++
		}
	}
	return float64(overlap)/float64(len(endoDates)) >= 0.5
}

// dispatchSingleModel prepares a wide date x SKU pivot once for the whole
// run and fits one estimator per SKU column against it, without the
// parallel path's error isolation — a fit failure here fails the whole
// run.
func dispatchSingleModel(req Request, skus []string) ([]domain.ForecastResult, error) {
	dates, pivotSKUs, matrix := ingest.Pivot(req.Frame)
	colIdx := make(map[string]int, len(pivotSKUs))
	for i, s := range pivotSKUs {
		colIdx[s] = i
	}

	results := make([]domain.ForecastResult, 0, len(skus))
	for _, sku := range skus {
		if isCancelled(req.Cancel) {
			break
		}
		col, ok := colIdx[sku]
		if !ok {
			return nil, fmt.Errorf("forecast: single-model path: sku %s missing from pivot", sku)
		}
		result := runWorkerFromPivot(req, sku, col, dates, matrix)
		if result.ErrorReason != "" && result.ErrorReason != "series sums to zero (all-zeros)" {
			return nil, fmt.Errorf("forecast: single-model path failed on sku %s: %s", sku, result.ErrorReason)
		}
		results = append(results, result)
	}
	return results, nil
}

// minTrainPercent computes max(0.5, 1 - horizon/len).
func minTrainPercent(horizon, length int) float64 {
	if length == 0 {
		return 0.5
	}
	v := 1 - float64(horizon)/float64(length)
	return math.Max(0.5, v)
}
