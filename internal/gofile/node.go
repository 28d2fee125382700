package gofile

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NodeType distinguishes file and folder content nodes.
type NodeType string

const (
	NodeFile   NodeType = "file"
	NodeFolder NodeType = "folder"
)

// ContentNode is a single node in the provider's content tree: either a file
// leaf with a download link or a folder with ordered children.
type ContentNode struct {
	ID       string
	Type     NodeType
	Name     string
	Link     string
	Size     int64
	MD5      string
	Children []*ContentNode
}

// IsFolder reports whether the node is a folder.
func (n *ContentNode) IsFolder() bool {
	return n.Type == NodeFolder
}

// contentPayload mirrors the wire shape of a content entry. The API has
// shipped children under both "children" and "contents" across versions, and
// older file entries omit "type" entirely.
type contentPayload struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	Name           string          `json:"name"`
	Link           string          `json:"link"`
	Size           int64           `json:"size"`
	MD5            string          `json:"md5"`
	PasswordStatus string          `json:"passwordStatus"`
	Children       json.RawMessage `json:"children"`
	Contents       json.RawMessage `json:"contents"`
}

// toNode converts a decoded payload into a ContentNode. The id argument wins
// over the payload's own id field, which is absent in some API versions.
func (p *contentPayload) toNode(id string) (*ContentNode, error) {
	if id == "" {
		id = p.ID
	}

	node := &ContentNode{
		ID:   id,
		Name: p.Name,
		Link: p.Link,
		Size: p.Size,
		MD5:  p.MD5,
	}

	// Absent type means file
	if p.Type == string(NodeFolder) {
		node.Type = NodeFolder
	} else {
		node.Type = NodeFile
	}

	if node.Type == NodeFolder {
		children, err := decodeChildren(p.Children)
		if err != nil {
			return nil, fmt.Errorf("decoding children: %w", err)
		}
		if len(children) == 0 {
			// Older API revisions used "contents" instead of "children"
			children, err = decodeChildren(p.Contents)
			if err != nil {
				return nil, fmt.Errorf("decoding contents: %w", err)
			}
		}
		node.Children = children
	}

	return node, nil
}

// decodeChildren decodes an id -> entry JSON object while preserving the
// order in which the API returned the keys. encoding/json maps would lose
// that order, so the object is walked token by token.
func decodeChildren(raw json.RawMessage) ([]*ContentNode, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var children []*ContentNode
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		id, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %v", keyTok)
		}

		var payload contentPayload
		if err := dec.Decode(&payload); err != nil {
			return nil, fmt.Errorf("decoding child %s: %w", id, err)
		}

		child, err := payload.toNode(id)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	return children, nil
}
