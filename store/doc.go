// Package store is the entry point to an xmlstore directory.
//
// A store directory holds a bbolt data file and a journal:
//
//	<dir>/pages.db     nodes, value index entries, symbols
//	<dir>/journal.log  commit log replayed on open
//
// Opening a store:
//
//	s, err := store.Open("./data", store.Options{})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
// or from a YAML file:
//
//	cfg, err := store.LoadConfig("xmlstore.yaml")
//	s, err := store.OpenConfig(cfg)
//
// Writing goes through a transaction. Sub-operations get a reusable handle
// so they can abort but not commit:
//
//	t, err := s.Begin(ctx)
//	defer t.Close()
//	err = s.WithDelegate(t, func(h tx.Txn) error {
//	    if err := s.PutNode(h, 42, node.Attr(types.QName{Local: "year"}, "1960")); err != nil {
//	        return err
//	    }
//	    return s.IndexValue(h, value.Integer(1960), 42)
//	})
//	if err == nil {
//	    err = t.Commit()
//	}
//
// Node records live under an 8-byte big-endian node id. Index entries are
// keyed by the order-preserving value encoding followed by the node id, so a
// byte-order scan over the values bucket visits values in domain order.
// String payloads are escaped and terminated first so a node id never
// decides the order of two different strings.
package store
