package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTML_StripsSerializedObject(t *testing.T) {
	in := `{'nid': '123', 'content': '<p>Hello</p>', 'clipping_nid': None, 'type': 'HTML5', 'duration': None}`
	assert.Equal(t, "<p>Hello</p>", HTML(in))

	in = `{"nid": "9", "content": "<p>Hi</p>", "clipping_nid": null, "type": "HTML5", "duration": null}`
	assert.Equal(t, "<p>Hi</p>", HTML(in))
}

func TestHTML_RemovesBraceFragmentsAndNewlines(t *testing.T) {
	assert.Equal(t, "a b c", HTML(`a{junk} b\nc`))
	assert.Equal(t, "x y", HTML("x\r\n\r\ny"))
	assert.Equal(t, "quoted", HTML(`"quoted"`))
}

func TestHTML_ProtocolRelativeImages(t *testing.T) {
	out := HTML(`<img src="//cdn.example.com/a.png"> <img src="/local.png">`)
	assert.Contains(t, out, `src="https://cdn.example.com/a.png"`)
	assert.Contains(t, out, `src="/local.png"`)
}

func TestHTML_ScriptStyling(t *testing.T) {
	out := HTML(`H<sub>2</sub>O and x<sup>2</sup>`)
	assert.Equal(t, `H<sub style="font-size: 0.85em; line-height: 1;">2</sub>O and x<sup style="font-size: 0.85em; line-height: 1;">2</sup>`, out)
}

func TestHTML_Glyphs(t *testing.T) {
	assert.Equal(t,
		`<span class="glyph" style="font-size: 18px;">P<sub style="font-size: 14px;">s</sub></span>`,
		HTML(`P<sub>s</sub>`))
	assert.Equal(t,
		`Vapour A<span class="glyph" style="font-size: 18px;">P<sup style="font-size: 14px;">0</sup></span> = 1`,
		HTML(`Vapour AP<sup>0</sup> = 1`))
	// other scripts after P are only styled
	assert.Equal(t, `P<sub style="font-size: 0.85em; line-height: 1;">2</sub>`, HTML(`P<sub>2</sub>`))
}

func TestHTML_Idempotent(t *testing.T) {
	samples := []string{
		`{'nid': '1', 'content': '<p>P<sub>s</sub> = P<sup>0</sup> x</p>', 'clipping_nid': None, 'type': 'HTML5', 'duration': None}`,
		`<img src="//a/b.png"><sub>1</sub>`,
		`a < b & c > d "q" 'r'`,
		`<table><tr><td>P<sub>s</sub></td></tr></table>`,
		`line\r\nbreak\nagain`,
		`<p>unclosed <b>bold`,
		``,
		`plain`,
	}
	for _, s := range samples {
		once := HTML(s)
		assert.Equal(t, once, HTML(once), s)
	}
}

func TestHTML_NeverPanics(t *testing.T) {
	inputs := []string{
		`<<<>>>`, `</p></div>`, `<sub>`, `<span class="glyph"><sub>s</sub></span>`,
		strings.Repeat("<div>", 500), "\x00\xff", `{`, `}`, `{'nid':`,
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { _ = HTML(in) }, in)
	}
}

func TestStripArtifacts(t *testing.T) {
	assert.Equal(t, "abc", StripArtifacts(`a{x}b{y}c`))
	assert.Equal(t, "one two", StripArtifacts(`'one\r\ntwo'`))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Physics: Optics, Waves", PlainText(`<p>Physics:</p> <b>Optics</b>,&nbsp;Waves`))
	assert.Equal(t, "a b", PlainText("a<br>b"))
	assert.Equal(t, "x", PlainText(`<script>evil()</script>x`))
}
