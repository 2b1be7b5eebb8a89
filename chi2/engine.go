package chi2

import (
	"fmt"
	"math"

	"github.com/arloliu/corrfit/dimension"
	"github.com/arloliu/corrfit/errs"
	"github.com/arloliu/corrfit/internal/pool"
	"github.com/arloliu/corrfit/logging"
	"github.com/arloliu/corrfit/model"
	"github.com/arloliu/corrfit/variance"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// input is one argument of a model evaluation: either a nuisance slot of θ
// (slot >= 0) or a fixed exact X value.
type input struct {
	slot  int
	value float64
}

// Engine evaluates the generalized chi-square
//
//	g(θ) = vᵀ · V⁺ · v
//
// where θ = [p | ξ] holds the model parameters followed by one nuisance value
// per active uncertain X slot, v is the Layout-ordered residual vector and V⁺
// the store's pseudo-inverse variance. Y residuals are model_j(x, p) - y and
// nuisance residuals are ξ - x_raw.
//
// The weight matrix and the model input map are rebuilt when the registry or
// variance version moves. Raw values are refreshed when the data version
// moves. Engine is not safe for concurrent use.
type Engine struct {
	store  *variance.Store
	reg    *dimension.Registry
	models []model.Model
	nPar   int
	nArg   int
	log    zerolog.Logger

	built   bool
	regVer  uint64
	varVer  uint64
	dataVer uint64

	layout *dimension.Layout
	inv    *mat.SymDense
	invErr error

	yDim   []int     // model index of every Y position
	inputs [][]input // model inputs of every Y position
	rawY   []float64 // measured Y of every Y position
	rawX   []float64 // measured X of every nuisance slot
}

// New creates an engine over store with one model per Y dimension.
//
// Parameters:
//   - store: Variance store holding the data and covariance blocks
//   - models: Models indexed by Y dimension
//
// Returns:
//   - *Engine: The engine, buffers are built lazily
//   - error: errs.ErrModelMismatch if the model count differs from the Y
//     dimension count, a model is nil, an arity differs from the X dimension
//     count or the parameter counts disagree
func New(store *variance.Store, models []model.Model) (*Engine, error) {
	reg := store.Registry()
	nPar, err := validate(reg, models)
	if err != nil {
		return nil, err
	}

	return &Engine{
		store:  store,
		reg:    reg,
		models: append([]model.Model(nil), models...),
		nPar:   nPar,
		nArg:   reg.NumXDimensions(),
		log:    logging.GetLogger("chi2"),
	}, nil
}

// SetModels replaces the models, keeping the cached buffers. It fails like
// New and leaves the engine unchanged on error.
func (e *Engine) SetModels(models []model.Model) error {
	nPar, err := validate(e.reg, models)
	if err != nil {
		return err
	}
	e.models = append(e.models[:0], models...)
	e.nPar = nPar
	if e.nArg != e.reg.NumXDimensions() {
		e.nArg = e.reg.NumXDimensions()
		e.built = false
	}

	return nil
}

func validate(reg *dimension.Registry, models []model.Model) (int, error) {
	if len(models) == 0 || len(models) != reg.NumYDimensions() {
		return 0, fmt.Errorf("%w: %d models for %d Y dimensions", errs.ErrModelMismatch, len(models), reg.NumYDimensions())
	}

	nArg := reg.NumXDimensions()
	nPar := -1
	for j, m := range models {
		if m == nil {
			return 0, fmt.Errorf("%w: nil model for Y dimension %d", errs.ErrModelMismatch, j)
		}
		if m.NArg() != nArg {
			return 0, fmt.Errorf("%w: model %d takes %d arguments, registry has %d X dimensions",
				errs.ErrModelMismatch, j, m.NArg(), nArg)
		}
		if nPar >= 0 && m.NPar() != nPar {
			return 0, fmt.Errorf("%w: model %d has %d parameters, model 0 has %d",
				errs.ErrModelMismatch, j, m.NPar(), nPar)
		}
		nPar = m.NPar()
	}

	return nPar, nil
}

// NPar returns the number of model parameters.
func (e *Engine) NPar() int {
	return e.nPar
}

// NDof returns the number of degrees of freedom: active Y points minus NPar.
// The result may be zero or negative.
func (e *Engine) NDof() int {
	return e.reg.Layout().TotalY() - e.nPar
}

// Size returns the length of θ: NPar plus the number of nuisance slots.
func (e *Engine) Size() int {
	return e.nPar + e.reg.Layout().TotalX()
}

// Layout returns the layout the engine currently evaluates over.
func (e *Engine) Layout() *dimension.Layout {
	return e.reg.Layout()
}

// Model returns the model of Y dimension j.
func (e *Engine) Model(j int) model.Model {
	return e.models[j]
}

// Invalidate forces a full rebuild on the next evaluation.
func (e *Engine) Invalidate() {
	e.built = false
}

// Prepare brings the engine buffers up to date with the store.
//
// Returns errs.ErrNoFitPoints when no Y point is active and the inversion
// error (errs.ErrSingularVariance, errs.ErrEmptyVariance) otherwise.
func (e *Engine) Prepare() error {
	regVer, varVer := e.reg.Version(), e.store.VarianceVersion()
	if !e.built || regVer != e.regVer || varVer != e.varVer {
		e.rebuild()
		e.regVer, e.varVer = regVer, varVer
		e.built = true
		e.dataVer = e.store.DataVersion()
		e.refresh()
	} else if dv := e.store.DataVersion(); dv != e.dataVer {
		e.dataVer = dv
		e.refresh()
	}

	if e.layout.TotalY() == 0 {
		return errs.ErrNoFitPoints
	}

	return e.invErr
}

func (e *Engine) rebuild() {
	l := e.reg.Layout()
	e.layout = l
	e.inv, e.invErr = e.store.Inverse()

	totalY := l.TotalY()
	e.yDim = make([]int, totalY)
	e.inputs = make([][]input, totalY)
	for p := range totalY {
		e.yDim[p] = l.Cell(p).Dim
		coord := l.PointCoordinate(p)
		in := make([]input, e.nArg)
		for i, c := range coord {
			in[i].slot = -1
			if pos, ok := l.XPosition(i, c); ok {
				in[i].slot = pos - totalY
			}
		}
		e.inputs[p] = in
	}
	e.rawY = make([]float64, totalY)
	e.rawX = make([]float64, l.TotalX())

	e.log.Debug().
		Int("y_points", totalY).
		Int("nuisance", l.TotalX()).
		Uint64("layout", l.ID()).
		Msg("chi2 buffers rebuilt")
}

// refresh reloads raw Y, raw X and exact inputs from the store.
func (e *Engine) refresh() {
	l := e.layout
	totalY := l.TotalY()
	for p := range totalY {
		c := l.Cell(p)
		e.rawY[p], _ = e.store.Y(c.Index, c.Dim)

		coord := l.PointCoordinate(p)
		for i := range e.inputs[p] {
			if e.inputs[p][i].slot < 0 {
				e.inputs[p][i].value, _ = e.store.X(coord[i], i)
			}
		}
	}
	for q := range e.rawX {
		c := l.Cell(totalY + q)
		e.rawX[q], _ = e.store.X(c.Index, c.Dim)
	}
}

// Chi2 returns g(θ).
//
// Returns errs.ErrVectorSize if len(theta) != Size() and any Prepare error.
func (e *Engine) Chi2(theta []float64) (float64, error) {
	if err := e.Prepare(); err != nil {
		return math.NaN(), err
	}

	n := e.layout.Size()
	v, release := pool.GetFloat64Slice(n)
	defer release()

	if err := e.residuals(theta, v); err != nil {
		return math.NaN(), err
	}
	vec := mat.NewVecDense(n, v)

	return mat.Inner(vec, e.inv, vec), nil
}

// Eval returns g(θ), or NaN when it cannot be evaluated. It is the form
// handed to minimizers.
func (e *Engine) Eval(theta []float64) float64 {
	chi2, err := e.Chi2(theta)
	if err != nil {
		return math.NaN()
	}

	return chi2
}

// Residuals returns the Layout-ordered residual vector at θ.
func (e *Engine) Residuals(theta []float64) ([]float64, error) {
	if err := e.Prepare(); err != nil {
		return nil, err
	}

	v := make([]float64, e.layout.Size())
	if err := e.residuals(theta, v); err != nil {
		return nil, err
	}

	return v, nil
}

func (e *Engine) residuals(theta, v []float64) error {
	totalX := len(e.rawX)
	if len(theta) != e.nPar+totalX {
		return fmt.Errorf("%w: θ has %d entries, want %d parameters + %d nuisance",
			errs.ErrVectorSize, len(theta), e.nPar, totalX)
	}

	params, xi := theta[:e.nPar], theta[e.nPar:]

	x, release := pool.GetFloat64Slice(e.nArg)
	defer release()

	for p, in := range e.inputs {
		for i, a := range in {
			if a.slot >= 0 {
				x[i] = xi[a.slot]
			} else {
				x[i] = a.value
			}
		}
		v[p] = e.models[e.yDim[p]].Eval(x, params) - e.rawY[p]
	}

	totalY := len(e.inputs)
	for q, raw := range e.rawX {
		v[totalY+q] = xi[q] - raw
	}

	return nil
}

// RawX returns the measured value of every nuisance slot in layout order,
// the natural starting point of ξ. The returned slice must not be modified.
func (e *Engine) RawX() ([]float64, error) {
	if err := e.Prepare(); err != nil {
		return nil, err
	}

	return e.rawX, nil
}

// NuisanceSigma returns the marginal standard deviation of every nuisance
// slot, read from the diagonal of the total variance.
func (e *Engine) NuisanceSigma() ([]float64, error) {
	if err := e.Prepare(); err != nil {
		return nil, err
	}

	total := e.store.TotalVariance()
	totalY := e.layout.TotalY()
	sigma := make([]float64, len(e.rawX))
	for q := range sigma {
		sigma[q] = math.Sqrt(math.Max(total.At(totalY+q, totalY+q), 0))
	}

	return sigma, nil
}
