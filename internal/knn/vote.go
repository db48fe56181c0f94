package knn

import (
	"sort"

	"github.com/go-sod/knn/internal/geom"
)

type Tally struct {
	Class string `json:"class"`
	Votes int    `json:"votes"`
	// Nearest is the distance of the closest neighbor carrying Class.
	Nearest float64 `json:"nearest"`
}

// Ballot is the outcome of a majority vote. Tallies are ranked by the
// same rules that pick the winner.
type Ballot struct {
	Label   string  `json:"label"`
	Votes   int     `json:"votes"`
	Tallies []Tally `json:"tallies"`
	// Tie is set when the winner shared the highest vote count.
	Tie bool `json:"tie"`
}

// Vote counts the classes of the neighbors. Equal counts go to the class
// whose nearest representative is closer, then to the lexically smaller one.
func Vote[P geom.Point[P]](neighbors []Neighbor[P]) (Ballot, error) {
	if len(neighbors) == 0 {
		return Ballot{}, ErrEmptyNeighborhood
	}
	pos := map[string]int{}
	var tallies []Tally
	for _, nb := range neighbors {
		class := nb.Datum.Class
		i, ok := pos[class]
		if !ok {
			pos[class] = len(tallies)
			tallies = append(tallies, Tally{Class: class, Nearest: nb.Distance})
			i = len(tallies) - 1
		}
		tallies[i].Votes++
		if nb.Distance < tallies[i].Nearest {
			tallies[i].Nearest = nb.Distance
		}
	}
	sort.SliceStable(tallies, func(i, j int) bool {
		a, b := tallies[i], tallies[j]
		if a.Votes != b.Votes {
			return a.Votes > b.Votes
		}
		if a.Nearest != b.Nearest {
			return a.Nearest < b.Nearest
		}
		return a.Class < b.Class
	})
	ballot := Ballot{Label: tallies[0].Class, Votes: tallies[0].Votes, Tallies: tallies}
	ballot.Tie = len(tallies) > 1 && tallies[1].Votes == tallies[0].Votes
	return ballot, nil
}

// Classify returns the majority label of the neighbors.
func Classify[P geom.Point[P]](neighbors []Neighbor[P]) (string, error) {
	ballot, err := Vote(neighbors)
	if err != nil {
		return "", err
	}
	return ballot.Label, nil
}
