package plan

import (
	"github.com/alexisbeaulieu97/stageplan/internal/step"
	planerrors "github.com/alexisbeaulieu97/stageplan/pkg/errors"
)

// Levels groups linked steps into execution levels using Kahn's
// algorithm: a step lands one level after the last of its success and
// failure dependencies. Steps keep plan order within a level.
func Levels(steps []*step.Step) ([][]*step.Step, error) {
	index := make(map[*step.Step]int, len(steps))
	for i, s := range steps {
		index[s] = i
	}

	indegree := make([]int, len(steps))
	dependents := make([][]int, len(steps))
	for i, s := range steps {
		for _, deps := range [][]*step.Step{s.OnSuccess, s.OnFail} {
			for _, dep := range deps {
				j, ok := index[dep]
				if !ok {
					return nil, planerrors.NewValidationError("requisites", "step "+s.Desc+" depends on a step outside the plan", nil)
				}
				indegree[i]++
				dependents[j] = append(dependents[j], i)
			}
		}
	}

	var queue []int
	for i, degree := range indegree {
		if degree == 0 {
			queue = append(queue, i)
		}
	}

	processed := 0
	var levels [][]*step.Step

	for len(queue) > 0 {
		level := make([]*step.Step, 0, len(queue))
		ready := make([]bool, len(steps))
		for _, i := range queue {
			processed++
			level = append(level, steps[i])
			for _, d := range dependents[i] {
				indegree[d]--
				if indegree[d] == 0 {
					ready[d] = true
				}
			}
		}
		levels = append(levels, level)

		var next []int
		for i, ok := range ready {
			if ok {
				next = append(next, i)
			}
		}
		queue = next
	}

	if processed != len(steps) {
		return nil, planerrors.NewValidationError("requisites", "cycle detected while ordering steps", nil)
	}

	return levels, nil
}
