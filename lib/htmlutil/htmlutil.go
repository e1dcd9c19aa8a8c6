package htmlutil

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// FindScriptAssignment locates a <script> tag containing an assignment to
// the given global variable and returns the right-hand side verbatim. The
// returned text may carry trailing javascript (a semicolon at the very
// least), so callers should parse it with a decoder that stops at the end
// of the first value.
func FindScriptAssignment(doc *goquery.Document, variable string) (string, error) {
	re := regexp.MustCompile(`(?s)` + regexp.QuoteMeta(variable) + `\s*=\s*(.*)`)

	for _, script := range doc.Find("script").Nodes {
		text := GetText(script)
		if !strings.Contains(text, variable) {
			continue
		}
		groups := re.FindStringSubmatch(text)
		if len(groups) < 2 {
			continue
		}
		return groups[1], nil
	}

	return "", fmt.Errorf("could not find an assignment to %q in any script tag", variable)
}
