// Package smsbert classifies SMS messages with a BERT sequence classifier
// exported to ONNX.
//
// # Quick Start
//
//	clf, err := smsbert.New("model.onnx", "vocab.txt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer clf.Close()
//
//	pred, err := clf.ClassifyText(ctx, "Tebrikler! 1000 TL kazandiniz, hemen tiklayin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%s (confidence: %.2f)\n", pred.Label, pred.Confidence)
//
// # Pipeline
//
// Each message body passes through an optional masking function, a BERT
// WordPiece encoder (see package tokenizer), and an ONNX forward pass (see
// package inference). The predicted class index is joined with a LabelTable.
// Classify processes a batch and reports failures per message, so one bad
// message never drops the others.
//
// # Thread Safety
//
// Classifier is safe for concurrent use. The ONNX sessions are created on
// first use and pooled; see WithPoolSize and WithConcurrency.
//
// # Model Files
//
// Any Hugging Face BertForSequenceClassification export works. The vocabulary
// is the model's vocab.txt; labels can be read from its config.json with
// LoadLabels.
package smsbert
