package directive

import (
	"os"
	"path/filepath"

	"github.com/ninefold/ifcc/diag"
	"github.com/ninefold/ifcc/lexer"
)

// handleInclude implements `Include "FILE";` and, when link is true,
// `Link "FILE";` (§6). A leading `>` in the filename names a file in
// the including file's own directory rather than in BaseDir. Link
// modules feed a linker this core does not own (§1's "bytecode
// assembler" collaborator); the file is only opened to validate it
// exists, not parsed.
func (d *Dispatcher) handleInclude(pos diag.Position, link bool) error {
	nameTok, err := d.Lex.Next()
	if err != nil {
		return err
	}
	var filename string
	switch nameTok.Kind {
	case lexer.KindDQString, lexer.KindSymbol, lexer.KindBareIdentifier:
		filename = string(nameTok.Text)
	default:
		return d.syntaxError(pos, "Include/Link requires a filename")
	}
	if err := d.expectSemicolon(); err != nil {
		return err
	}

	dir := d.BaseDir
	if len(filename) > 0 && filename[0] == '>' {
		filename = filename[1:]
		dir = filepath.Dir(d.filename())
	}
	full := filepath.Join(dir, filename)

	data, err := os.ReadFile(full) // #nosec G304 -- user-provided include file path
	if err != nil {
		return diag.Fatalf(pos, d.filename(), "cannot read %q: %v", filename, err)
	}

	if link {
		return nil
	}
	d.Lex.Source().PushFile(full, data, false)
	return nil
}

// handleSystemFile implements `System_file;` (§6): marks the
// currently-open lexical block so every symbol it goes on to create
// carries FlagInSystemFile.
func (d *Dispatcher) handleSystemFile(pos diag.Position) error {
	if err := d.expectSemicolon(); err != nil {
		return err
	}
	d.Lex.Source().MarkSystemFile()
	return nil
}
