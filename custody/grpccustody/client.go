package grpccustody

import (
	"context"
	"crypto/ed25519"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/opencura/anchor/custody"
	"github.com/opencura/anchor/ledger"
)

// Client implements custody.Custody over the Custody gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client CustodyClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewCustodyClient(cc)}, nil
}

// NewClient wraps an established connection. Test path (bufconn).
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewCustodyClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}

var _ custody.Custody = (*Client)(nil)

func (c *Client) ListSpendable(ctx context.Context, minTotal uint64, key ed25519.PublicKey) ([]ledger.SpendableOutput, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	in, err := marshalWire(listSpendableRequest{MinTotal: minTotal, Key: key})
	if err != nil {
		return nil, err
	}
	reply, err := c.client.ListSpendable(ctx, in)
	if err != nil {
		return nil, mapRPC(err)
	}
	var resp listSpendableResponse
	if err := unmarshalWire(reply, &resp); err != nil {
		return nil, ledger.Wrap(ledger.KindEncoding, "custody response unreadable", err)
	}
	var outs []ledger.SpendableOutput
	for _, w := range resp.Outputs {
		out, err := fromWireOutput(w)
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

func (c *Client) ResolveKey(ctx context.Context, out ledger.SpendableOutput) (ed25519.PublicKey, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	in, err := marshalWire(toWireOutput(out))
	if err != nil {
		return nil, err
	}
	reply, err := c.client.ResolveKey(ctx, in)
	if err != nil {
		return nil, mapRPC(err)
	}
	var resp resolveKeyResponse
	if err := unmarshalWire(reply, &resp); err != nil {
		return nil, ledger.Wrap(ledger.KindEncoding, "custody response unreadable", err)
	}
	return ed25519.PublicKey(resp.Key), nil
}

func (c *Client) ReceivingScript(ctx context.Context, key ed25519.PublicKey) ([]byte, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	in, err := marshalWire(receivingScriptRequest{Key: key})
	if err != nil {
		return nil, err
	}
	reply, err := c.client.ReceivingScript(ctx, in)
	if err != nil {
		return nil, mapRPC(err)
	}
	var resp receivingScriptResponse
	if err := unmarshalWire(reply, &resp); err != nil {
		return nil, ledger.Wrap(ledger.KindEncoding, "custody response unreadable", err)
	}
	return resp.Script, nil
}

func (c *Client) SignInput(ctx context.Context, req ledger.SignRequest) ([]byte, error) {
	if req.Tx == nil {
		return nil, ledger.E(ledger.KindSigning, "sign request carries no transaction")
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	in, err := marshalWire(signInputRequest{
		RawTx:  req.Tx.Serialize(),
		Input:  req.Input,
		Script: req.Script,
		Value:  req.Value,
		PubKey: req.PubKey,
	})
	if err != nil {
		return nil, err
	}
	reply, err := c.client.SignInput(ctx, in)
	if err != nil {
		return nil, mapRPC(err)
	}
	var resp signInputResponse
	if err := unmarshalWire(reply, &resp); err != nil {
		return nil, ledger.Wrap(ledger.KindEncoding, "custody response unreadable", err)
	}
	return resp.Unlock, nil
}

func (c *Client) EncryptionKey(ctx context.Context, signing ed25519.PublicKey) ([]byte, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	in, err := marshalWire(encryptionKeyRequest{Signing: signing})
	if err != nil {
		return nil, err
	}
	reply, err := c.client.EncryptionKey(ctx, in)
	if err != nil {
		return nil, mapRPC(err)
	}
	var resp encryptionKeyResponse
	if err := unmarshalWire(reply, &resp); err != nil {
		return nil, ledger.Wrap(ledger.KindEncoding, "custody response unreadable", err)
	}
	return resp.Key, nil
}

func (c *Client) SealOpen(ctx context.Context, recipient ed25519.PublicKey, sealed []byte) ([]byte, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	in, err := marshalWire(sealOpenRequest{Recipient: recipient, Sealed: sealed})
	if err != nil {
		return nil, err
	}
	reply, err := c.client.SealOpen(ctx, in)
	if err != nil {
		return nil, mapRPC(err)
	}
	var resp sealOpenResponse
	if err := unmarshalWire(reply, &resp); err != nil {
		return nil, ledger.Wrap(ledger.KindEncoding, "custody response unreadable", err)
	}
	return resp.Plain, nil
}

func pubKeyOrNil(b []byte) ed25519.PublicKey {
	if len(b) == 0 {
		return nil
	}
	return ed25519.PublicKey(b)
}
