package minter

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
)

// DecodeEvents inspects every receipt log against the BridgeMinter event
// ABI. Logs whose topic does not match a known event are skipped; a log
// that claims to be a known event but fails to decode is a real error,
// not something to swallow.
func DecodeEvents(contractABI abi.ABI, logs []*types.Log) (Events, error) {
	var out Events

	mintedEv := contractABI.Events["Minted"]
	snapshotEv := contractABI.Events["PriceSnapshot"]

	for _, lg := range logs {
		if lg == nil || len(lg.Topics) == 0 {
			continue
		}

		switch lg.Topics[0] {
		case mintedEv.ID:
			var ev Minted
			if err := unpackEvent(contractABI, "Minted", mintedEv.Inputs, &ev, lg); err != nil {
				return out, fmt.Errorf("decode Minted log: %w", err)
			}
			out.Minted = &ev
		case snapshotEv.ID:
			var ev PriceSnapshot
			if err := unpackEvent(contractABI, "PriceSnapshot", snapshotEv.Inputs, &ev, lg); err != nil {
				return out, fmt.Errorf("decode PriceSnapshot log: %w", err)
			}
			out.PriceSnapshot = &ev
		}
	}

	return out, nil
}

func unpackEvent(contractABI abi.ABI, name string, inputs abi.Arguments, out interface{}, lg *types.Log) error {
	if len(lg.Data) > 0 {
		if err := contractABI.UnpackIntoInterface(out, name, lg.Data); err != nil {
			return err
		}
	}

	var indexed abi.Arguments
	for _, arg := range inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return abi.ParseTopics(out, indexed, lg.Topics[1:])
}
