package neural

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/cogniboost/pkg/errors"
	"github.com/YuminosukeSato/cogniboost/pkg/log"
)

// Fit trains the network with mini-batch Adam on class-weighted binary
// cross-entropy. Each class is weighted n/(2*count) so the minority
// class contributes as much loss as the majority. The last
// ValidationSplit fraction of the rows is held out and scored after
// every epoch; the remaining rows are reshuffled each epoch with the
// seeded RNG. Dropout is active only on training batches.
func (net *TwoBranchNet) Fit(XA, XB, y mat.Matrix) (err error) {
	const op = "TwoBranchNet.Fit"
	defer errors.Recover(&err, op)

	xa, xb, labels, err := net.validateFit(op, XA, XB, y)
	if err != nil {
		return err
	}

	rows, colsA := xa.Dims()
	_, colsB := xb.Dims()

	pos := 0
	for _, v := range labels {
		if v == 1 {
			pos++
		}
	}
	wPos := float64(rows) / (2.0 * float64(pos))
	wNeg := float64(rows) / (2.0 * float64(rows-pos))
	sampleW := make([]float64, rows)
	for i, v := range labels {
		if v == 1 {
			sampleW[i] = wPos
		} else {
			sampleW[i] = wNeg
		}
	}

	// Validation rows come off the tail, matching the usual
	// validation_split behavior of taking the data as given.
	splitAt := int(float64(rows) * (1.0 - net.ValidationSplit))
	if splitAt < 1 {
		return errors.NewValueError(op, "not enough rows left to train after the validation split")
	}
	nTrain := splitAt
	nVal := rows - splitAt

	rng := rand.New(rand.NewSource(net.RandomState))
	net.branchA = newDenseLayer(colsA, net.BranchUnits, rng)
	net.branchB = newDenseLayer(colsB, net.BranchUnits, rng)
	net.joint = newDenseLayer(2*net.BranchUnits, net.JointUnits, rng)
	net.output = newDenseLayer(net.JointUnits, 1, rng)

	var valXA, valXB *mat.Dense
	var valLabels []float64
	if nVal > 0 {
		valIdx := make([]int, nVal)
		for i := range valIdx {
			valIdx[i] = splitAt + i
		}
		valXA = gatherRows(xa, valIdx)
		valXB = gatherRows(xb, valIdx)
		valLabels = make([]float64, nVal)
		copy(valLabels, labels[splitAt:])
	}

	trainIdx := make([]int, nTrain)
	for i := range trainIdx {
		trainIdx[i] = i
	}

	logger := log.GetLoggerWithName("neural.two_branch")
	logger.Debug("training two-branch network",
		"rows", rows,
		"raw_features", colsA,
		"leaf_features", colsB,
		"train_rows", nTrain,
		"val_rows", nVal,
		"epochs", net.Epochs,
	)

	net.History = make([]EpochStats, 0, net.Epochs)
	step := 0
	for epoch := 1; epoch <= net.Epochs; epoch++ {
		rng.Shuffle(nTrain, func(i, j int) {
			trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i]
		})

		epochLoss := 0.0
		for start := 0; start < nTrain; start += net.BatchSize {
			end := start + net.BatchSize
			if end > nTrain {
				end = nTrain
			}
			batch := trainIdx[start:end]
			step++
			loss := net.trainBatch(xa, xb, labels, sampleW, batch, rng, step)
			epochLoss += loss * float64(len(batch))
		}
		epochLoss /= float64(nTrain)

		valLoss := math.NaN()
		valAcc := math.NaN()
		if nVal > 0 {
			valLoss, valAcc = net.evaluate(valXA, valXB, valLabels)
		}

		net.History = append(net.History, EpochStats{
			Epoch:       epoch,
			TrainLoss:   epochLoss,
			ValLoss:     valLoss,
			ValAccuracy: valAcc,
		})

		logger.Debug("epoch finished",
			"epoch", epoch,
			"train_loss", epochLoss,
			"val_loss", valLoss,
			"val_accuracy", valAcc,
		)
		if epoch%10 == 0 {
			logger.Info("training progress",
				"epoch", epoch,
				"train_loss", epochLoss,
				"val_loss", valLoss,
				"val_accuracy", valAcc,
			)
		}
	}

	net.nFeaturesA_ = colsA
	net.nFeaturesB_ = colsB
	net.state.SetDimensions(colsA+colsB, rows)
	net.state.SetFitted()
	return nil
}

// trainBatch runs one forward/backward pass over the given rows and
// applies an Adam update to every layer. Returns the mean weighted loss
// of the batch.
func (net *TwoBranchNet) trainBatch(xa, xb *mat.Dense, labels, sampleW []float64, batch []int, rng *rand.Rand, step int) float64 {
	nb := len(batch)
	xaB := gatherRows(xa, batch)
	xbB := gatherRows(xb, batch)

	preA := net.branchA.forward(xaB)
	actA := mat.DenseCopyOf(preA)
	reluInPlace(actA)
	preB := net.branchB.forward(xbB)
	actB := mat.DenseCopyOf(preB)
	reluInPlace(actB)

	var maskA, maskB *mat.Dense
	if net.DropoutRate > 0 {
		maskA = dropoutMask(nb, net.BranchUnits, net.DropoutRate, rng)
		maskB = dropoutMask(nb, net.BranchUnits, net.DropoutRate, rng)
		actA.MulElem(actA, maskA)
		actB.MulElem(actB, maskB)
	}

	merged := concatColumns(actA, actB)
	preJ := net.joint.forward(merged)
	actJ := mat.DenseCopyOf(preJ)
	reluInPlace(actJ)
	preOut := net.output.forward(actJ)

	// Combined sigmoid and cross-entropy gradient: w*(p-y)/n.
	loss := 0.0
	dOut := mat.NewDense(nb, 1, nil)
	for i := 0; i < nb; i++ {
		yi := labels[batch[i]]
		wi := sampleW[batch[i]]
		p := sigmoid(preOut.At(i, 0))
		pc := errors.ClipValue(p, 1e-7, 1.0-1e-7)
		if yi == 1 {
			loss -= wi * math.Log(pc)
		} else {
			loss -= wi * math.Log(1.0-pc)
		}
		dOut.Set(i, 0, wi*(p-yi)/float64(nb))
	}
	loss /= float64(nb)

	gWO, gbO, dJ := net.output.backward(actJ, dOut)
	maskReLU(dJ, preJ)
	gWJ, gbJ, dMerged := net.joint.backward(merged, dJ)

	dA, dB := splitColumns(dMerged, net.BranchUnits)
	if maskA != nil {
		dA.MulElem(dA, maskA)
		dB.MulElem(dB, maskB)
	}
	maskReLU(dA, preA)
	maskReLU(dB, preB)
	gWA, gbA, _ := net.branchA.backward(xaB, dA)
	gWB, gbB, _ := net.branchB.backward(xbB, dB)

	net.output.adamStep(gWO, gbO, net.LearningRate, net.Beta1, net.Beta2, net.Epsilon, step)
	net.joint.adamStep(gWJ, gbJ, net.LearningRate, net.Beta1, net.Beta2, net.Epsilon, step)
	net.branchA.adamStep(gWA, gbA, net.LearningRate, net.Beta1, net.Beta2, net.Epsilon, step)
	net.branchB.adamStep(gWB, gbB, net.LearningRate, net.Beta1, net.Beta2, net.Epsilon, step)

	return loss
}

// evaluate scores held-out rows without dropout. Loss is unweighted
// binary cross-entropy; accuracy thresholds at 0.5.
func (net *TwoBranchNet) evaluate(xa, xb *mat.Dense, labels []float64) (loss, acc float64) {
	probs := net.predictRaw(xa, xb)

	correct := 0
	for i, p := range probs {
		pc := errors.ClipValue(p, 1e-7, 1.0-1e-7)
		if labels[i] == 1 {
			loss -= math.Log(pc)
		} else {
			loss -= math.Log(1.0 - pc)
		}
		predicted := 0.0
		if p > 0.5 {
			predicted = 1.0
		}
		if predicted == labels[i] {
			correct++
		}
	}

	n := float64(len(probs))
	return loss / n, float64(correct) / n
}

func (net *TwoBranchNet) validateFit(op string, XA, XB, y mat.Matrix) (*mat.Dense, *mat.Dense, []float64, error) {
	rows, colsA := XA.Dims()
	rowsB, colsB := XB.Dims()
	yRows, yCols := y.Dims()

	if rows == 0 || colsA == 0 || colsB == 0 {
		return nil, nil, nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if rowsB != rows {
		return nil, nil, nil, errors.NewDimensionError(op, rows, rowsB, 0)
	}
	if yRows != rows {
		return nil, nil, nil, errors.NewDimensionError(op, rows, yRows, 0)
	}
	if yCols != 1 {
		return nil, nil, nil, errors.NewValueError(op, "y must be a column vector")
	}

	labels := make([]float64, rows)
	pos := 0
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if v != 0 && v != 1 {
			return nil, nil, nil, errors.NewValueError(op, "labels must be binary (0 or 1)")
		}
		if v == 1 {
			pos++
		}
		labels[i] = v
	}
	if pos == 0 || pos == rows {
		return nil, nil, nil, errors.NewValueError(op, "training labels must contain both classes")
	}

	if net.Epochs < 1 {
		return nil, nil, nil, errors.NewValueError(op, "epochs must be positive")
	}
	if net.BatchSize < 1 {
		return nil, nil, nil, errors.NewValueError(op, "batch size must be positive")
	}
	if net.LearningRate <= 0 {
		return nil, nil, nil, errors.NewValueError(op, "learning rate must be positive")
	}
	if net.DropoutRate < 0 || net.DropoutRate >= 1 {
		return nil, nil, nil, errors.NewValueError(op, "dropout rate must be in [0, 1)")
	}
	if net.ValidationSplit < 0 || net.ValidationSplit >= 1 {
		return nil, nil, nil, errors.NewValueError(op, "validation split must be in [0, 1)")
	}

	return toDense(XA), toDense(XB), labels, nil
}

// gatherRows copies the listed rows of src into a fresh matrix.
func gatherRows(src *mat.Dense, idx []int) *mat.Dense {
	_, cols := src.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	for i, r := range idx {
		copy(out.RawRowView(i), src.RawRowView(r))
	}
	return out
}

// dropoutMask draws an inverted-dropout mask: kept units carry
// 1/(1-rate) so activations keep their expected scale, dropped units
// are zero.
func dropoutMask(rows, cols int, rate float64, rng *rand.Rand) *mat.Dense {
	keep := 1.0 - rate
	inv := 1.0 / keep

	m := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		row := m.RawRowView(i)
		for j := range row {
			if rng.Float64() < keep {
				row[j] = inv
			}
		}
	}
	return m
}

// maskReLU zeroes grad entries wherever the pre-activation was not
// positive.
func maskReLU(grad, pre *mat.Dense) {
	rows, _ := grad.Dims()
	for i := 0; i < rows; i++ {
		g := grad.RawRowView(i)
		p := pre.RawRowView(i)
		for j := range g {
			if p[j] <= 0 {
				g[j] = 0
			}
		}
	}
}

func splitColumns(m *mat.Dense, at int) (*mat.Dense, *mat.Dense) {
	rows, cols := m.Dims()
	left := mat.NewDense(rows, at, nil)
	right := mat.NewDense(rows, cols-at, nil)
	for i := 0; i < rows; i++ {
		row := m.RawRowView(i)
		copy(left.RawRowView(i), row[:at])
		copy(right.RawRowView(i), row[at:])
	}
	return left, right
}
