package core

// Transformer mutates a Snapshot in place before it is published.
type Transformer interface {
	Transform(s *Snapshot) error
}

// HistoryTransformer mutates a History in place before it is returned.
type HistoryTransformer interface {
	TransformHistory(h *History) error
}

// Chain applies transformers in order, stopping at the first error.
func Chain(s *Snapshot, transformers ...Transformer) error {
	for _, tr := range transformers {
		if err := tr.Transform(s); err != nil {
			return err
		}
	}
	return nil
}

// ChainHistory applies history transformers in order, stopping at the first
// error.
func ChainHistory(h *History, transformers ...HistoryTransformer) error {
	for _, tr := range transformers {
		if err := tr.TransformHistory(h); err != nil {
			return err
		}
	}
	return nil
}
