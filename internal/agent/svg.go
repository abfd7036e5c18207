package agent

import (
	"encoding/xml"
	"strings"
)

var svgElements = map[string]bool{
	"svg": true, "g": true, "defs": true, "title": true, "desc": true,
	"rect": true, "circle": true, "ellipse": true, "line": true,
	"polyline": true, "polygon": true, "path": true, "image": true, "use": true,
	"text": true, "tspan": true, "textPath": true, "a": true,
	"linearGradient": true, "radialGradient": true, "stop": true,
	"clipPath": true, "mask": true, "pattern": true, "marker": true, "symbol": true,
	"animate": true, "animateTransform": true, "animateMotion": true,
}

var svgAttributes = map[string]bool{
	"id": true, "class": true, "viewBox": true, "version": true,
	"preserveAspectRatio": true, "width": true, "height": true,
	"x": true, "y": true, "x1": true, "y1": true, "x2": true, "y2": true,
	"cx": true, "cy": true, "r": true, "rx": true, "ry": true,
	"dx": true, "dy": true, "rotate": true, "d": true, "points": true,
	"transform": true, "opacity": true, "visibility": true, "display": true,
	"fill": true, "fill-opacity": true, "fill-rule": true,
	"stroke": true, "stroke-width": true, "stroke-opacity": true,
	"stroke-linecap": true, "stroke-linejoin": true, "stroke-dasharray": true,
	"font-family": true, "font-size": true, "font-weight": true, "font-style": true,
	"text-anchor": true, "dominant-baseline": true, "letter-spacing": true,
	"textLength": true, "startOffset": true,
	"offset": true, "stop-color": true, "stop-opacity": true,
	"gradientUnits": true, "gradientTransform": true, "spreadMethod": true, "fx": true, "fy": true,
	"clip-path": true, "clip-rule": true, "clipPathUnits": true, "mask": true,
	"patternUnits": true, "patternTransform": true,
	"marker-start": true, "marker-mid": true, "marker-end": true,
	"markerWidth": true, "markerHeight": true, "refX": true, "refY": true, "orient": true,
	"role": true, "aria-label": true, "aria-hidden": true,
	"attributeName": true, "attributeType": true, "type": true,
	"from": true, "to": true, "by": true, "values": true, "keyTimes": true,
	"dur": true, "begin": true, "end": true, "repeatCount": true, "additive": true,
}

// SanitizeSVG re-emits svg keeping only known drawing elements and
// presentation attributes. Event handlers, scripts, styles, foreign content
// and links to anything but fragments or inline raster images are dropped.
// Malformed input is cut at the first syntax error and the open elements are
// closed, so the result is always well formed.
func SanitizeSVG(svg string) string {
	d := xml.NewDecoder(strings.NewReader(svg))
	d.Strict = false
	d.Entity = xml.HTMLEntity

	var (
		out     strings.Builder
		open    []string
		skip    int
		pending bool
	)
	flush := func() {
		if pending {
			out.WriteByte('>')
			pending = false
		}
	}

	for {
		tok, err := d.RawToken()
		if err != nil {
			break
		}
		if skip > 0 {
			switch tok.(type) {
			case xml.StartElement:
				skip++
			case xml.EndElement:
				skip--
			}
			continue
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !allowedElement(t) {
				flush()
				skip = 1
				continue
			}
			flush()
			out.WriteByte('<')
			out.WriteString(t.Name.Local)
			for _, a := range t.Attr {
				if name, ok := allowedAttr(a); ok {
					out.WriteByte(' ')
					out.WriteString(name)
					out.WriteString(`="`)
					_ = xml.EscapeText(&out, []byte(a.Value))
					out.WriteByte('"')
				}
			}
			open = append(open, t.Name.Local)
			pending = true
		case xml.EndElement:
			if len(open) == 0 || t.Name.Space != "" || open[len(open)-1] != t.Name.Local {
				continue
			}
			open = open[:len(open)-1]
			if pending {
				out.WriteString("/>")
				pending = false
				continue
			}
			out.WriteString("</" + t.Name.Local + ">")
		case xml.CharData:
			if len(open) == 0 {
				continue
			}
			flush()
			_ = xml.EscapeText(&out, t)
		}
	}

	for i := len(open) - 1; i >= 0; i-- {
		if pending {
			out.WriteString("/>")
			pending = false
			continue
		}
		out.WriteString("</" + open[i] + ">")
	}
	return out.String()
}

func allowedElement(t xml.StartElement) bool {
	if t.Name.Space != "" || !svgElements[t.Name.Local] {
		return false
	}
	if !strings.HasPrefix(t.Name.Local, "animate") {
		return true
	}
	for _, a := range t.Attr {
		if a.Name.Local != "attributeName" {
			continue
		}
		target := strings.ToLower(strings.TrimSpace(a.Value))
		if strings.HasSuffix(target, "href") || strings.HasPrefix(target, "on") {
			return false
		}
	}
	return true
}

// allowedAttr reports whether a survives and the name to write it under.
func allowedAttr(a xml.Attr) (string, bool) {
	switch {
	case a.Name.Space == "" && a.Name.Local == "xmlns":
		return "xmlns", a.Value == "http://www.w3.org/2000/svg"
	case a.Name.Space == "xmlns" && a.Name.Local == "xlink":
		return "xmlns:xlink", a.Value == "http://www.w3.org/1999/xlink"
	case a.Name.Space == "xml" && a.Name.Local == "space":
		return "xml:space", true
	case a.Name.Local == "href" && (a.Name.Space == "" || a.Name.Space == "xlink"):
		name := "href"
		if a.Name.Space == "xlink" {
			name = "xlink:href"
		}
		return name, safeLink(a.Value)
	case a.Name.Space != "" || !svgAttributes[a.Name.Local]:
		return "", false
	}
	return a.Name.Local, !scriptable(a.Value)
}

var rasterData = []string{"data:image/png", "data:image/jpeg", "data:image/gif", "data:image/webp"}

func safeLink(v string) bool {
	v = compact(v)
	if strings.HasPrefix(v, "#") {
		return !scriptable(v)
	}
	for _, p := range rasterData {
		if strings.HasPrefix(v, p) {
			return true
		}
	}
	return false
}

func scriptable(v string) bool {
	v = compact(v)
	return strings.Contains(v, "javascript:") || strings.Contains(v, "vbscript:") ||
		strings.Contains(v, "data:text") || strings.Contains(v, "expression(")
}

// compact lowercases v and drops whitespace and control characters, which
// browsers ignore inside URL schemes.
func compact(v string) string {
	return strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return -1
		}
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, v)
}
