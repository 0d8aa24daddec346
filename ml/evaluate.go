package ml

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"gonum.org/v1/gonum/mat"
)

// ClassReport holds per-class precision, recall and F1 for one class.
type ClassReport struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report is a held-out evaluation. Confusion[i][j] counts rows of class i
// predicted as class j.
type Report struct {
	Accuracy  float64
	PerClass  []ClassReport
	Confusion [][]int
}

// Evaluate scores model on a held-out set and builds the classification
// report printed by the trainer.
func Evaluate(model Classifier, features *mat.Dense, labels []int, numClass int) (*Report, error) {
	rows, _ := features.Dims()
	if rows == 0 || rows != len(labels) {
		return nil, errors.New("features and labels size mismatch")
	}

	confusion := make([][]int, numClass)
	for i := range confusion {
		confusion[i] = make([]int, numClass)
	}
	correct := 0
	for i := 0; i < rows; i++ {
		predicted, err := model.PredictClass(features.RawRowView(i))
		if err != nil {
			return nil, err
		}
		if predicted < 0 || predicted >= numClass || labels[i] < 0 || labels[i] >= numClass {
			return nil, fmt.Errorf("row %d: class out of range", i)
		}
		confusion[labels[i]][predicted]++
		if predicted == labels[i] {
			correct++
		}
	}

	report := &Report{
		Accuracy:  float64(correct) / float64(rows),
		PerClass:  make([]ClassReport, numClass),
		Confusion: confusion,
	}
	for k := 0; k < numClass; k++ {
		truePositive := confusion[k][k]
		predicted, actual := 0, 0
		for j := 0; j < numClass; j++ {
			predicted += confusion[j][k]
			actual += confusion[k][j]
		}
		cr := ClassReport{Support: actual}
		if predicted > 0 {
			cr.Precision = float64(truePositive) / float64(predicted)
		}
		if actual > 0 {
			cr.Recall = float64(truePositive) / float64(actual)
		}
		if cr.Precision+cr.Recall > 0 {
			cr.F1 = 2 * cr.Precision * cr.Recall / (cr.Precision + cr.Recall)
		}
		report.PerClass[k] = cr
	}
	return report, nil
}

// WriteReport prints accuracy, a classification report and the confusion matrix.
func (r *Report) WriteReport(w io.Writer, classes []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Accuracy: %.4f\n\n", r.Accuracy)
	fmt.Fprint(tw, "class\tprecision\trecall\tf1-score\tsupport\t\n")
	for k, cr := range r.PerClass {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%d\t\n", className(classes, k), cr.Precision, cr.Recall, cr.F1, cr.Support)
	}

	fmt.Fprint(tw, "\nConfusion Matrix:\n\t")
	for k := range r.Confusion {
		fmt.Fprintf(tw, "%s\t", className(classes, k))
	}
	fmt.Fprint(tw, "\n")
	for k, row := range r.Confusion {
		fmt.Fprintf(tw, "%s\t", className(classes, k))
		for _, count := range row {
			fmt.Fprintf(tw, "%d\t", count)
		}
		fmt.Fprint(tw, "\n")
	}
	return tw.Flush()
}

func className(classes []string, k int) string {
	if k < len(classes) {
		return classes[k]
	}
	return fmt.Sprintf("%d", k)
}
