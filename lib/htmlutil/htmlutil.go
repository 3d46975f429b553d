package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

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
	// <br> renders as a line break, without this the words around it are glued together
	if node.Type == html.ElementNode && node.Data == "br" {
		buffer.WriteString("\n")
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		switch {
		case unicode.IsSpace(c):
			newStr.WriteRune(' ')
		case unicode.IsPrint(c):
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText strips non-printable characters and collapses whitespace runs into single spaces.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SelectionText returns the cleaned text of every node in `sel`.
func SelectionText(sel *goquery.Selection) string {
	var buffer strings.Builder
	for _, n := range sel.Nodes {
		buffer.WriteString(GetText(n))
	}
	return CleanText(buffer.String())
}
