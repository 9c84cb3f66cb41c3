package parser

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docseg/internal/pandoc"
	"github.com/ulikunitz/xz"
)

// XZParser decompresses an .xz stream and hands it to Inner.
type XZParser struct {
	Inner Parser
}

func (p *XZParser) Parse(r io.Reader, filename string) (*pandoc.Document, error) {
	zr, err := xz.NewReader(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("open xz stream: %w", err)
	}
	return p.Inner.Parse(zr, strings.TrimSuffix(filename, filepath.Ext(filename)))
}
