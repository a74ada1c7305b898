package walker

import "github.com/Sumatoshi-tech/dirscan/pkg/dirstat"

type statSink struct {
	stats []dirstat.Stat
}

func (s *statSink) Write(stat dirstat.Stat) error {
	s.stats = append(s.stats, stat)

	return nil
}
