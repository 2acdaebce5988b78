package main

import (
	"context"
	"encoding/hex"
	"os"
	"strconv"

	"github.com/tokenized/config"
	"github.com/tokenized/openassets/logger"
	"github.com/tokenized/openassets/openassets"
	"github.com/tokenized/openassets/rpcnode"
	"github.com/tokenized/openassets/txbuilder"
	"github.com/tokenized/openassets/wire"
)

// Config holds the settings needed to build and fund Open Assets transactions against a node.
// Values come from the environment (or a .env file), matched by envconfig tag.
type Config struct {
	FeeRate       float32 `default:"0.5" envconfig:"FEE_RATE" json:"fee_rate"`
	DustThreshold uint64  `default:"546" envconfig:"DUST_THRESHOLD" json:"dust_threshold"`
	Fees          uint64  `default:"150" envconfig:"FEES" json:"fees"`

	RPC rpcnode.Config `envconfig:"RPC"`
}

func main() {
	ctx := logger.ContextWithLogger(context.Background(), true, true, "")

	cfg := &Config{}
	if err := config.LoadConfig(ctx, cfg); err != nil {
		logger.Fatal(ctx, "Failed to load config : %s", err)
	}

	maskedConfig, err := config.MarshalJSONMaskedRaw(cfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to marshal config : %s", err)
	}

	logger.InfoWithFields(ctx, []logger.Field{
		logger.JSON("config", maskedConfig),
	}, "Config")

	if len(os.Args) < 2 {
		logger.Fatal(ctx, "Not enough arguments. Need command (issue)")
	}

	node, err := rpcnode.NewNode(&cfg.RPC)
	if err != nil {
		logger.Fatal(ctx, "Failed to connect to node : %s", err)
	}

	switch os.Args[1] {
	case "issue":
		Issue(ctx, cfg, node, os.Args[2:])
	default:
		logger.Fatal(ctx, "Unknown command : %s", os.Args[1])
	}
}

// Issue mints a new asset from spendable funding outpoints.
// Parameters: <amount> <to script hex> <change script hex> <outpoint:index> <value> [...]
func Issue(ctx context.Context, cfg *Config, node *rpcnode.RPCNode, args []string) {
	if len(args) < 5 || (len(args)-3)%2 != 0 {
		logger.Fatal(ctx, "Wrong argument count: issue [amount] [to script] [change script] "+
			"[outpoint] [value]...")
	}

	amount, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		logger.Fatal(ctx, "Invalid amount : %s", err)
	}

	toScript, err := hex.DecodeString(args[1])
	if err != nil {
		logger.Fatal(ctx, "Invalid to script : %s", err)
	}

	changeScript, err := hex.DecodeString(args[2])
	if err != nil {
		logger.Fatal(ctx, "Invalid change script : %s", err)
	}

	var inputs []openassets.SpendableOutput
	outpoints := make([]wire.OutPoint, 0, (len(args)-3)/2)
	for i := 3; i < len(args); i += 2 {
		outpoint, err := wire.OutPointFromStr(args[i])
		if err != nil {
			logger.Fatal(ctx, "Invalid outpoint : %s", err)
		}
		outpoints = append(outpoints, *outpoint)
	}

	utxos, err := node.GetOutputs(ctx, outpoints)
	if err != nil {
		logger.Fatal(ctx, "Failed to fetch funding outputs : %s", err)
	}

	for i, utxo := range utxos {
		inputs = append(inputs, openassets.SpendableOutput{
			Outpoint: outpoints[i],
			Output: openassets.ColoredOutput{
				Value:      int64(utxo.Value),
				Script:     []byte(utxo.LockingScript),
				OutputType: openassets.Uncolored,
			},
		})
	}

	spec := txbuilder.IssuanceSpec{
		ToScript:     toScript,
		ChangeScript: changeScript,
		Amount:       amount,
	}

	tx, err := txbuilder.Issue(inputs, spec, nil, cfg.DustThreshold, cfg.Fees)
	if err != nil {
		logger.Fatal(ctx, "Failed to build issuance : %s", err)
	}

	if err := node.SendTx(ctx, tx); err != nil {
		logger.Fatal(ctx, "Failed to send issuance : %s", err)
	}

	logger.InfoWithFields(ctx, []logger.Field{
		logger.Stringer("txid", tx.TxHash()),
	}, "Issued asset")
}
