package scopes

import "fmt"

// ValidateSubRanges checks that srs tiles [start, end) exactly: the first
// From equals start, the last To equals end, consecutive entries are
// contiguous and each From < To.
func ValidateSubRanges(srs SubRangeBindings, start, end Position) error {
	if len(srs) == 0 {
		return fmt.Errorf("empty sequence")
	}
	if ComparePositions(srs[0].From, start) != 0 {
		return fmt.Errorf("first sub-range starts at %d:%d, not at range start %d:%d",
			srs[0].From.Line, srs[0].From.Column, start.Line, start.Column)
	}
	for i, sr := range srs {
		if ComparePositions(sr.From, sr.To) >= 0 {
			return fmt.Errorf("sub-range %d is empty or inverted (%d:%d - %d:%d)",
				i, sr.From.Line, sr.From.Column, sr.To.Line, sr.To.Column)
		}
		if i > 0 && ComparePositions(sr.From, srs[i-1].To) != 0 {
			return fmt.Errorf("sub-range %d starts at %d:%d, not at previous end %d:%d",
				i, sr.From.Line, sr.From.Column, srs[i-1].To.Line, srs[i-1].To.Column)
		}
	}
	if last := srs[len(srs)-1]; ComparePositions(last.To, end) != 0 {
		return fmt.Errorf("last sub-range ends at %d:%d, not at range end %d:%d",
			last.To.Line, last.To.Column, end.Line, end.Column)
	}
	return nil
}
