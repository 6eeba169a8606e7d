package static

import (
	"slices"
	"strings"
)

type property struct {
	name      string
	initial   string
	inherited bool
}

// properties is the set of longhands every resolved style reports, sorted by
// name once on init.
var properties = []property{
	{"align-items", "normal", false},
	{"animation-duration", "0s", false},
	{"animation-name", "none", false},
	{"background-color", "rgba(0, 0, 0, 0)", false},
	{"background-image", "none", false},
	{"background-position", "0% 0%", false},
	{"background-repeat", "repeat", false},
	{"background-size", "auto", false},
	{"border-bottom-color", "currentcolor", false},
	{"border-bottom-left-radius", "0px", false},
	{"border-bottom-right-radius", "0px", false},
	{"border-bottom-style", "none", false},
	{"border-bottom-width", "medium", false},
	{"border-collapse", "separate", true},
	{"border-left-color", "currentcolor", false},
	{"border-left-style", "none", false},
	{"border-left-width", "medium", false},
	{"border-right-color", "currentcolor", false},
	{"border-right-style", "none", false},
	{"border-right-width", "medium", false},
	{"border-spacing", "0px 0px", true},
	{"border-top-color", "currentcolor", false},
	{"border-top-left-radius", "0px", false},
	{"border-top-right-radius", "0px", false},
	{"border-top-style", "none", false},
	{"border-top-width", "medium", false},
	{"bottom", "auto", false},
	{"box-shadow", "none", false},
	{"box-sizing", "content-box", false},
	{"caption-side", "top", true},
	{"clear", "none", false},
	{"color", "rgb(0, 0, 0)", true},
	{"column-gap", "normal", false},
	{"content", "normal", false},
	{"cursor", "auto", true},
	{"direction", "ltr", true},
	{"display", "inline", false},
	{"empty-cells", "show", true},
	{"flex-basis", "auto", false},
	{"flex-direction", "row", false},
	{"flex-grow", "0", false},
	{"flex-shrink", "1", false},
	{"flex-wrap", "nowrap", false},
	{"float", "none", false},
	{"font-family", "serif", true},
	{"font-size", "16px", true},
	{"font-style", "normal", true},
	{"font-variant", "normal", true},
	{"font-weight", "400", true},
	{"height", "auto", false},
	{"justify-content", "normal", false},
	{"left", "auto", false},
	{"letter-spacing", "normal", true},
	{"line-height", "normal", true},
	{"list-style-image", "none", true},
	{"list-style-position", "outside", true},
	{"list-style-type", "disc", true},
	{"margin-bottom", "0px", false},
	{"margin-left", "0px", false},
	{"margin-right", "0px", false},
	{"margin-top", "0px", false},
	{"max-height", "none", false},
	{"max-width", "none", false},
	{"min-height", "auto", false},
	{"min-width", "auto", false},
	{"opacity", "1", false},
	{"order", "0", false},
	{"outline-color", "currentcolor", false},
	{"outline-style", "none", false},
	{"outline-width", "medium", false},
	{"overflow-wrap", "normal", true},
	{"overflow-x", "visible", false},
	{"overflow-y", "visible", false},
	{"padding-bottom", "0px", false},
	{"padding-left", "0px", false},
	{"padding-right", "0px", false},
	{"padding-top", "0px", false},
	{"position", "static", false},
	{"quotes", "auto", true},
	{"right", "auto", false},
	{"row-gap", "normal", false},
	{"tab-size", "8", true},
	{"table-layout", "auto", false},
	{"text-align", "start", true},
	{"text-decoration-color", "currentcolor", false},
	{"text-decoration-line", "none", false},
	{"text-decoration-style", "solid", false},
	{"text-indent", "0px", true},
	{"text-shadow", "none", true},
	{"text-transform", "none", true},
	{"top", "auto", false},
	{"transform", "none", false},
	{"transition-duration", "0s", false},
	{"transition-property", "all", false},
	{"vertical-align", "baseline", false},
	{"visibility", "visible", true},
	{"white-space", "normal", true},
	{"width", "auto", false},
	{"word-break", "normal", true},
	{"word-spacing", "0px", true},
	{"writing-mode", "horizontal-tb", true},
	{"z-index", "auto", false},
}

var propertyIndex map[string]int

func init() {
	slices.SortFunc(properties, func(a, b property) int { return strings.Compare(a.name, b.name) })
	propertyIndex = make(map[string]int, len(properties))
	for i, p := range properties {
		propertyIndex[p.name] = i
	}
}

func lookupProperty(name string) (property, bool) {
	i, ok := propertyIndex[name]
	if !ok {
		return property{}, false
	}
	return properties[i], true
}

var sides = [4]string{"top", "right", "bottom", "left"}

// expand splits shorthand declaration into longhands. Unknown properties and
// longhands are returned as is.
func expand(name, value string) [][2]string {
	switch name {
	case "margin", "padding":
		return box(name+"-%s", value)
	case "inset":
		return box("%s", value)
	case "border-width", "border-style", "border-color":
		return box("border-%s-"+strings.TrimPrefix(name, "border-"), value)
	case "border":
		var out [][2]string
		for _, side := range sides {
			out = append(out, borderSide("border-"+side, value)...)
		}
		return out
	case "border-top", "border-right", "border-bottom", "border-left":
		return borderSide(name, value)
	case "outline":
		return borderSide("outline", value)
	case "border-radius":
		// horizontal radii only, elliptic corners are kept as first part
		if i := strings.IndexByte(value, '/'); i >= 0 {
			value = strings.TrimSpace(value[:i])
		}
		v := boxValues(fields(value))
		if v == nil {
			return nil
		}
		return [][2]string{
			{"border-top-left-radius", v[0]},
			{"border-top-right-radius", v[1]},
			{"border-bottom-right-radius", v[2]},
			{"border-bottom-left-radius", v[3]},
		}
	case "overflow":
		f := fields(value)
		switch len(f) {
		case 1:
			return [][2]string{{"overflow-x", f[0]}, {"overflow-y", f[0]}}
		case 2:
			return [][2]string{{"overflow-x", f[0]}, {"overflow-y", f[1]}}
		}
		return nil
	case "gap":
		f := fields(value)
		switch len(f) {
		case 1:
			return [][2]string{{"row-gap", f[0]}, {"column-gap", f[0]}}
		case 2:
			return [][2]string{{"row-gap", f[0]}, {"column-gap", f[1]}}
		}
		return nil
	case "background":
		return background(value)
	case "text-decoration":
		return textDecoration(value)
	case "list-style":
		return listStyle(value)
	case "flex":
		return flex(value)
	case "font":
		return font(value)
	}
	return [][2]string{{name, value}}
}

// fields splits value on white space outside of parentheses and quotes.
func fields(value string) []string {
	var (
		out   []string
		depth int
		quote byte
		start = -1
	)
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && (c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'):
			if start >= 0 {
				out = append(out, value[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, value[start:])
	}
	return out
}

// boxValues applies 1 to 4 value box notation: top, right, bottom, left.
func boxValues(v []string) []string {
	switch len(v) {
	case 1:
		return []string{v[0], v[0], v[0], v[0]}
	case 2:
		return []string{v[0], v[1], v[0], v[1]}
	case 3:
		return []string{v[0], v[1], v[2], v[1]}
	case 4:
		return v
	}
	return nil
}

func box(pattern, value string) [][2]string {
	v := boxValues(fields(value))
	if v == nil {
		return nil
	}
	out := make([][2]string, 0, 4)
	for i, side := range sides {
		out = append(out, [2]string{strings.Replace(pattern, "%s", side, 1), v[i]})
	}
	return out
}

var borderStyles = map[string]bool{
	"none": true, "hidden": true, "dotted": true, "dashed": true, "solid": true,
	"double": true, "groove": true, "ridge": true, "inset": true, "outset": true,
}

func isLength(v string) bool {
	switch v {
	case "thin", "medium", "thick", "0", "auto":
		return true
	}
	if strings.HasPrefix(v, "calc(") {
		return true
	}
	return len(v) > 0 && (v[0] >= '0' && v[0] <= '9' || v[0] == '.' || v[0] == '-' || v[0] == '+')
}

// borderSide expands border like shorthand, omitted parts are reset.
func borderSide(prefix, value string) [][2]string {
	width, style, color := "medium", "none", "currentcolor"
	for _, f := range fields(value) {
		lf := strings.ToLower(f)
		switch {
		case borderStyles[lf]:
			style = lf
		case isLength(lf):
			width = f
		default:
			color = f
		}
	}
	return [][2]string{
		{prefix + "-width", width},
		{prefix + "-style", style},
		{prefix + "-color", color},
	}
}

var backgroundKeywords = map[string]bool{
	"repeat": true, "repeat-x": true, "repeat-y": true, "no-repeat": true, "space": true, "round": true,
	"scroll": true, "fixed": true, "local": true,
	"top": true, "bottom": true, "left": true, "right": true, "center": true,
	"border-box": true, "padding-box": true, "content-box": true,
	"cover": true, "contain": true,
}

func background(value string) [][2]string {
	image, color, repeat := "none", "rgba(0, 0, 0, 0)", "repeat"
	for _, f := range fields(value) {
		lf := strings.ToLower(f)
		switch {
		case lf == "none":
		case strings.HasPrefix(lf, "url(") || strings.Contains(lf, "gradient("):
			image = f
		case strings.HasPrefix(lf, "repeat") || lf == "no-repeat" || lf == "space" || lf == "round":
			repeat = lf
		case backgroundKeywords[lf], isLength(lf), strings.Contains(lf, "/"):
			// position and size are not tracked by the shorthand
		default:
			color = f
		}
	}
	return [][2]string{
		{"background-image", image},
		{"background-color", color},
		{"background-repeat", repeat},
	}
}

var decorationLines = map[string]bool{
	"none": true, "underline": true, "overline": true, "line-through": true, "blink": true,
}

var decorationStyles = map[string]bool{
	"solid": true, "double": true, "dotted": true, "dashed": true, "wavy": true,
}

func textDecoration(value string) [][2]string {
	var lines []string
	style, color := "solid", "currentcolor"
	for _, f := range fields(value) {
		lf := strings.ToLower(f)
		switch {
		case decorationLines[lf]:
			lines = append(lines, lf)
		case decorationStyles[lf]:
			style = lf
		default:
			color = f
		}
	}
	line := "none"
	if len(lines) > 0 {
		line = strings.Join(lines, " ")
	}
	return [][2]string{
		{"text-decoration-line", line},
		{"text-decoration-style", style},
		{"text-decoration-color", color},
	}
}

var listPositions = map[string]bool{"inside": true, "outside": true}

func listStyle(value string) [][2]string {
	typ, position, image := "disc", "outside", "none"
	for _, f := range fields(value) {
		lf := strings.ToLower(f)
		switch {
		case listPositions[lf]:
			position = lf
		case strings.HasPrefix(lf, "url("):
			image = f
		case lf == "none":
			typ = "none"
		default:
			typ = f
		}
	}
	return [][2]string{
		{"list-style-type", typ},
		{"list-style-position", position},
		{"list-style-image", image},
	}
}

func isNumber(v string) bool {
	if v == "" {
		return false
	}
	for i := 0; i < len(v); i++ {
		if (v[i] < '0' || v[i] > '9') && v[i] != '.' {
			return false
		}
	}
	return true
}

func flex(value string) [][2]string {
	f := fields(strings.ToLower(value))
	grow, shrink, basis := "0", "1", "auto"
	switch {
	case len(f) == 1 && f[0] == "none":
		grow, shrink = "0", "0"
	case len(f) == 1 && f[0] == "auto":
		grow = "1"
	case len(f) == 1 && isNumber(f[0]):
		grow, basis = f[0], "0%"
	case len(f) == 1:
		grow, basis = "1", f[0]
	case len(f) == 2 && isNumber(f[1]):
		grow, shrink, basis = f[0], f[1], "0%"
	case len(f) == 2:
		grow, basis = f[0], f[1]
	case len(f) == 3:
		grow, shrink, basis = f[0], f[1], f[2]
	default:
		return nil
	}
	return [][2]string{{"flex-grow", grow}, {"flex-shrink", shrink}, {"flex-basis", basis}}
}

var fontSizes = map[string]bool{
	"xx-small": true, "x-small": true, "small": true, "medium": true, "large": true,
	"x-large": true, "xx-large": true, "xxx-large": true, "smaller": true, "larger": true,
}

// font expands "[style] [variant] [weight] size[/line-height] family".
func font(value string) [][2]string {
	style, variant, weight, size, lineHeight := "normal", "normal", "400", "", "normal"
	f := fields(value)
	i := 0
	for ; i < len(f) && size == ""; i++ {
		lf := strings.ToLower(f[i])
		switch {
		case lf == "normal":
		case lf == "italic" || lf == "oblique":
			style = lf
		case lf == "small-caps":
			variant = lf
		case lf == "bold" || lf == "bolder" || lf == "lighter" || isNumber(lf):
			weight = lf
			if lf == "bold" {
				weight = "700"
			}
		case fontSizes[lf] || isLength(lf):
			size = f[i]
			if j := strings.IndexByte(size, '/'); j >= 0 {
				size, lineHeight = size[:j], size[j+1:]
			}
		default:
			// system font keywords and garbage
			return nil
		}
	}
	if size == "" || i >= len(f) {
		return nil
	}
	if f[i] == "/" && i+1 < len(f) {
		lineHeight = f[i+1]
		i += 2
	} else if strings.HasPrefix(f[i], "/") {
		lineHeight = strings.TrimPrefix(f[i], "/")
		i++
	}
	if i >= len(f) {
		return nil
	}
	return [][2]string{
		{"font-style", style},
		{"font-variant", variant},
		{"font-weight", weight},
		{"font-size", size},
		{"line-height", lineHeight},
		{"font-family", strings.Join(f[i:], " ")},
	}
}
