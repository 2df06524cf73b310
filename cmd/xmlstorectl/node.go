package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/joshuapare/xmlstore/store/node"
	"github.com/spf13/cobra"
)

func init() {
	nodeCmd := &cobra.Command{
		Use:   "node",
		Short: "Work with node records",
	}
	nodeCmd.AddCommand(newNodeDecodeCmd())
	rootCmd.AddCommand(nodeCmd)
}

func newNodeDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <store> <hex>",
		Short: "Decode a node record using a store's symbol table",
		Long: `The decode command parses a hex-encoded node record. Name and namespace
ids are resolved against the symbol table of the given store directory.

Example:
  xmlstorectl node decode ./data "$(xxd -p record.bin)"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNodeDecode(args)
		},
	}
}

// nodeView is the printable form of a node.
type nodeView struct {
	ID        uint64 `json:"id,omitempty"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	IDType    bool   `json:"id_type,omitempty"`
	Value     string `json:"value,omitempty"`
}

func viewNode(id uint64, n node.Node) nodeView {
	return nodeView{
		ID:        id,
		Kind:      n.Kind.String(),
		Name:      n.Name.Local,
		Namespace: n.Name.Namespace,
		Prefix:    n.Name.Prefix,
		IDType:    n.Subtype == node.SubtypeID,
		Value:     n.Value,
	}
}

func (v nodeView) String() string {
	var b strings.Builder
	b.WriteString(v.Kind)
	b.WriteByte(' ')
	if v.Prefix != "" {
		b.WriteString(v.Prefix)
		b.WriteByte(':')
	}
	b.WriteString(v.Name)
	if v.Namespace != "" {
		fmt.Fprintf(&b, " {%s}", v.Namespace)
	}
	if v.IDType {
		b.WriteString(" [id]")
	}
	if v.Value != "" {
		fmt.Fprintf(&b, " = %q", v.Value)
	}
	return b.String()
}

func runNodeDecode(args []string) error {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(args[1]), "0x"))
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}

	s, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := node.Decode(raw, s.Symbols())
	if err != nil {
		return fmt.Errorf("failed to decode node: %w", err)
	}

	v := viewNode(0, n)
	if jsonOut {
		return printJSON(v)
	}
	printInfo("%s\n", v)
	return nil
}
