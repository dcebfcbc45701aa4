package analyzer

import (
	"github.com/slowlang/pubdata/analyzer/ir"
	"github.com/slowlang/pubdata/analyzer/ndjson"
)

type (
	// Decision records why a path took one successor at a terminator.
	Decision struct {
		PP   string
		Kind string // br | switch | indirect
		Cond string
		Succ string

		Sense   string // br: true | false
		Case    string // switch: chosen case value ID
		Default bool   // switch: default edge
		Target  string // indirect: address ID
	}

	// CondExpr is one structured path-condition term: a == / != comparison
	// or an n-ary conjunction.
	CondExpr struct {
		Op    string
		L, R  string
		Terms []CondExpr
	}
)

func cmpExpr(op, l, r string) CondExpr {
	return CondExpr{Op: op, L: l, R: r}
}

func andExpr(terms []CondExpr) CondExpr {
	return CondExpr{Op: "and", Terms: terms}
}

func (d *Decision) appendJSON(b []byte) []byte {
	b = append(b, `{"pp":`...)
	b = ndjson.AppendString(b, d.PP)
	b = append(b, `,"kind":`...)
	b = ndjson.AppendString(b, d.Kind)
	b = append(b, `,"succ":`...)
	b = ndjson.AppendString(b, d.Succ)

	if d.Cond != "" {
		b = append(b, `,"cond":`...)
		b = ndjson.AppendString(b, d.Cond)
	}

	if d.Sense != "" {
		b = append(b, `,"sense":`...)
		b = ndjson.AppendString(b, d.Sense)
	}

	if d.Case != "" {
		b = append(b, `,"case":`...)
		b = ndjson.AppendString(b, d.Case)
	}

	if d.Default {
		b = append(b, `,"default":true`...)
	}

	if d.Target != "" {
		b = append(b, `,"target":`...)
		b = ndjson.AppendString(b, d.Target)
	}

	return append(b, '}')
}

func (e *CondExpr) appendJSON(b []byte) []byte {
	b = append(b, `{"op":`...)
	b = ndjson.AppendString(b, e.Op)

	if e.Op == "and" {
		b = append(b, `,"terms":[`...)

		for i := range e.Terms {
			if i != 0 {
				b = append(b, ',')
			}

			b = e.Terms[i].appendJSON(b)
		}

		b = append(b, ']')
	} else {
		b = append(b, `,"lhs":`...)
		b = ndjson.AppendString(b, e.L)
		b = append(b, `,"rhs":`...)
		b = ndjson.AppendString(b, e.R)
	}

	return append(b, '}')
}

// switchDefaultCond builds the textual default-edge condition: the
// conjunction of cond != case over all cases, or cond!=<any> for a
// caseless switch.
func (s *funcState) switchDefaultCond(t *ir.Instr, condID string) string {
	text := ""

	for _, c := range t.Cases {
		if text != "" {
			text += " && "
		}

		text += condID + "!=" + s.valueIDOf(c.Value)
	}

	if text == "" {
		text = condID + "!=<any>"
	}

	return text
}

// switchDefaultExpr is the structured twin of switchDefaultCond: a single
// != term for one case, an "and" of != terms for several, and a single
// cond != <any> term for a caseless switch.
func (s *funcState) switchDefaultExpr(t *ir.Instr, condID string) CondExpr {
	var terms []CondExpr

	for _, c := range t.Cases {
		terms = append(terms, cmpExpr("!=", condID, s.valueIDOf(c.Value)))
	}

	switch len(terms) {
	case 0:
		return cmpExpr("!=", condID, "<any>")
	case 1:
		return terms[0]
	default:
		return andExpr(terms)
	}
}
