package symbolic

import (
	"fmt"
	"strings"
)

// FormulaString renders a formula for diagnostics and the explain
// command. The syntax is informal; it is not parsed back.
func FormulaString(f Formula) string {
	var sb strings.Builder
	writeFormula(&sb, f)
	return sb.String()
}

// TermString renders a term.
func TermString(t Term) string {
	var sb strings.Builder
	writeTerm(&sb, t)
	return sb.String()
}

func writeFormula(sb *strings.Builder, f Formula) {
	switch x := f.(type) {
	case *Bool:
		sb.WriteString(x.TV.String())
	case *Presence:
		fmt.Fprintf(sb, "present(t%d,r%d)", x.Table, x.Row)
	case *Cmp:
		sb.WriteByte('(')
		writeTerm(sb, x.L)
		fmt.Fprintf(sb, " %s ", x.Op)
		writeTerm(sb, x.R)
		sb.WriteByte(')')
	case *NullTest:
		writeTerm(sb, x.T)
		if x.Neg {
			sb.WriteString(" IS NOT NULL")
		} else {
			sb.WriteString(" IS NULL")
		}
	case *All:
		writeJunction(sb, x.Fs, " AND ")
	case *Any:
		writeJunction(sb, x.Fs, " OR ")
	case *Neg:
		sb.WriteString("NOT ")
		writeFormula(sb, x.F)
	case *Is:
		sb.WriteString("[is ")
		sb.WriteString(x.Want.String())
		sb.WriteString("] ")
		writeFormula(sb, x.F)
	default:
		fmt.Fprintf(sb, "<%T>", f)
	}
}

func writeJunction(sb *strings.Builder, fs []Formula, sep string) {
	sb.WriteByte('(')
	for i, f := range fs {
		if i > 0 {
			sb.WriteString(sep)
		}
		writeFormula(sb, f)
	}
	sb.WriteByte(')')
}

func writeTerm(sb *strings.Builder, t Term) {
	switch x := t.(type) {
	case *Cell:
		fmt.Fprintf(sb, "cell(t%d,r%d,c%d)", x.Table, x.Row, x.Col)
	case *Const:
		sb.WriteString(x.Val.String())
	case *Arith:
		sb.WriteByte('(')
		writeTerm(sb, x.L)
		fmt.Fprintf(sb, " %s ", x.Op)
		writeTerm(sb, x.R)
		sb.WriteByte(')')
	case *If:
		sb.WriteString("if(")
		writeFormula(sb, x.Cond)
		sb.WriteString(", ")
		writeTerm(sb, x.Then)
		sb.WriteString(", ")
		writeTerm(sb, x.Else)
		sb.WriteByte(')')
	case *Cast:
		fmt.Fprintf(sb, "%s(", strings.ToLower(x.To.String()))
		writeTerm(sb, x.T)
		sb.WriteByte(')')
	case *FromBool:
		sb.WriteString("bool(")
		writeFormula(sb, x.F)
		sb.WriteByte(')')
	default:
		fmt.Fprintf(sb, "<%T>", t)
	}
}
