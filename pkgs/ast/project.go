package ast

import (
	"github.com/dgenies/batchdsl/pkgs/invariant"
	"github.com/dgenies/batchdsl/pkgs/lexer"
	"github.com/dgenies/batchdsl/pkgs/parser"
)

// Project walks the parse events into jobs. It only changes
// representation: params left incomplete by a syntax error and jobs with no
// complete param are skipped, everything else is kept as written.
func Project(tree *parser.ParseTree) []Job {
	invariant.NotNil(tree, "tree")

	var (
		jobs    []Job
		job     *Job
		param   *Param
		hasKey  bool
		hasVal  bool
		inValue bool
		skipped int // depth inside NodeError
	)

	for _, ev := range tree.Events {
		switch ev.Kind {
		case parser.EventOpen:
			switch parser.NodeKind(ev.Data) {
			case parser.NodeJob:
				job = &Job{}
			case parser.NodeParam:
				param = &Param{}
				hasKey, hasVal = false, false
			case parser.NodeValue:
				inValue = true
			case parser.NodeError:
				skipped++
			}

		case parser.EventClose:
			switch parser.NodeKind(ev.Data) {
			case parser.NodeJob:
				invariant.Invariant(job != nil, "job closed without being opened")
				if len(job.Params) > 0 {
					jobs = append(jobs, *job)
				}
				job = nil
			case parser.NodeParam:
				invariant.Invariant(job != nil && param != nil, "param outside of a job")
				if hasKey && hasVal {
					job.Params = append(job.Params, *param)
				}
				param = nil
			case parser.NodeValue:
				inValue = false
			case parser.NodeError:
				skipped--
			}

		case parser.EventToken:
			if param == nil || skipped > 0 {
				continue
			}
			tok := tree.Token(ev)
			switch {
			case inValue:
				param.Value = tok
				hasVal = true
			case tok.Type == lexer.KEY && !hasKey:
				param.Key = tok
				hasKey = true
			}
		}
	}

	return jobs
}
