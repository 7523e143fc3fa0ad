package graph

// Stats holds the counters shown next to the graph.
type Stats struct {
	Papers    int `json:"papers"`
	Authors   int `json:"authors"`
	Journals  int `json:"journals"`
	Citations int `json:"citations"`
	Nodes     int `json:"nodes"`
	Links     int `json:"links"`
}

// ComputeStats counts nodes by type and links of type "cites".
func ComputeStats(nodes []*Node, links []*Link) Stats {
	s := Stats{Nodes: len(nodes), Links: len(links)}
	for _, n := range nodes {
		switch n.Type {
		case NodeTypePaper:
			s.Papers++
		case NodeTypeAuthor:
			s.Authors++
		case NodeTypeJournal:
			s.Journals++
		}
	}
	for _, l := range links {
		if l.Type == LinkCites {
			s.Citations++
		}
	}
	return s
}
