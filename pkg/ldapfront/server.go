package ldapfront

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/go-asn1-ber/asn1-ber"
)

// LDAP protocol op application tags (RFC 4511 §4.2 onward).
const (
	appBindRequest         = 0
	appBindResponse        = 1
	appUnbindRequest       = 2
	appSearchRequest       = 3
	appSearchResultEntry   = 4
	appSearchResultDone    = 5
)

// Filter choice context tags (RFC 4511 §4.5.1.7).
const (
	filterAnd              = 0
	filterOr               = 1
	filterNot              = 2
	filterEqualityMatch    = 3
	filterSubstrings       = 4
	filterGreaterOrEqual   = 5
	filterLessOrEqual      = 6
	filterPresent          = 7
	filterApproxMatch      = 8
)

const (
	resultSuccess            = 0
	resultOperationsError    = 1
	resultInvalidCredentials = 49
	resultNoSuchObject       = 32
)

// PasswordVerifier authenticates a simple bind against this platform's own
// directory (server mode), as distinct from DirectoryBinder's client-mode
// bind against an external directory.
type PasswordVerifier interface {
	Verify(ctx context.Context, tenantID, bindDN, password string) error
}

// Server is the LDAP directory front-end named in spec §6: "Listens on
// TCP; implements Bind, Search ..., Unbind." One Server instance serves one
// tenant's directory; multi-tenant deployments run one listener per tenant
// or resolve tenantID from the listening port/SNI at the caller's layer,
// consistent with §4.7's tenant-resolution responsibility living outside
// this package.
type Server struct {
	TenantID  string
	Directory Directory
	Auth      PasswordVerifier
	Logger    *slog.Logger
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Serve accepts connections on ln until ctx is cancelled or Accept fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	bound := false
	for {
		packet, err := ber.ReadPacket(conn)
		if err != nil {
			if err != io.EOF {
				s.logger().Warn("ldapfront: reading LDAPMessage", "err", err)
			}
			return
		}
		messageID, op, err := splitMessage(packet)
		if err != nil {
			s.logger().Warn("ldapfront: malformed LDAPMessage", "err", err)
			return
		}

		switch op.Tag {
		case appBindRequest:
			resultCode := s.handleBind(ctx, op)
			bound = resultCode == resultSuccess
			writeResult(conn, messageID, appBindResponse, resultCode, "")
		case appUnbindRequest:
			return
		case appSearchRequest:
			if !bound {
				writeResult(conn, messageID, appSearchResultDone, resultOperationsError, "bind required")
				continue
			}
			s.handleSearch(ctx, conn, messageID, op)
		default:
			writeResult(conn, messageID, appSearchResultDone, resultOperationsError, "unsupported operation")
		}
	}
}

// splitMessage unpacks the outer LDAPMessage SEQUENCE { messageID, protocolOp, ... }.
func splitMessage(packet *ber.Packet) (int64, *ber.Packet, error) {
	if len(packet.Children) < 2 {
		return 0, nil, fmt.Errorf("ldapfront: LDAPMessage has %d children, want >= 2", len(packet.Children))
	}
	messageID, ok := packet.Children[0].Value.(int64)
	if !ok {
		return 0, nil, fmt.Errorf("ldapfront: messageID is not an integer")
	}
	return messageID, packet.Children[1], nil
}

// handleBind supports simple bind only (name + [0] OCTET STRING password),
// the only mechanism named in spec §6.
func (s *Server) handleBind(ctx context.Context, op *ber.Packet) int64 {
	if len(op.Children) < 3 {
		return resultOperationsError
	}
	bindDN, _ := op.Children[1].Value.(string)
	authChoice := op.Children[2]
	if authChoice.Tag != 0 {
		return resultOperationsError
	}
	password := string(authChoice.Data.Bytes())
	if bindDN == "" && password == "" {
		// Anonymous bind: always permitted, grants no search authorization
		// beyond what the Directory itself restricts.
		return resultSuccess
	}
	if s.Auth == nil {
		return resultOperationsError
	}
	if err := s.Auth.Verify(ctx, s.TenantID, bindDN, password); err != nil {
		return resultInvalidCredentials
	}
	return resultSuccess
}

func (s *Server) handleSearch(ctx context.Context, conn net.Conn, messageID int64, op *ber.Packet) {
	if len(op.Children) < 7 {
		writeResult(conn, messageID, appSearchResultDone, resultOperationsError, "malformed SearchRequest")
		return
	}
	baseDN, _ := op.Children[0].Value.(string)
	scopeNum, _ := op.Children[1].Value.(int64)
	filterPacket := op.Children[6]

	filter, err := decodeFilter(filterPacket)
	if err != nil {
		writeResult(conn, messageID, appSearchResultDone, resultOperationsError, err.Error())
		return
	}

	entries, err := Search(ctx, s.Directory, s.TenantID, baseDN, Scope(scopeNum), filter)
	if err != nil {
		writeResult(conn, messageID, appSearchResultDone, resultOperationsError, err.Error())
		return
	}

	for _, entry := range entries {
		writeSearchResultEntry(conn, messageID, entry)
	}
	writeResult(conn, messageID, appSearchResultDone, resultSuccess, "")
}

// decodeFilter converts a BER Filter CHOICE packet (RFC 4511 §4.5.1.7) into
// this package's Filter AST, the same structure ParseFilter produces for
// the string form, so Search's matching logic never needs to know which
// encoding a request arrived in.
func decodeFilter(p *ber.Packet) (Filter, error) {
	switch p.Tag {
	case filterAnd:
		return Filter{Kind: FilterAnd, Children: decodeFilterChildren(p)}, nil
	case filterOr:
		return Filter{Kind: FilterOr, Children: decodeFilterChildren(p)}, nil
	case filterNot:
		if len(p.Children) != 1 {
			return Filter{}, fmt.Errorf("ldapfront: NOT filter requires exactly one operand")
		}
		child, err := decodeFilter(p.Children[0])
		if err != nil {
			return Filter{}, err
		}
		return Filter{Kind: FilterNot, Children: []Filter{child}}, nil
	case filterEqualityMatch, filterGreaterOrEqual, filterLessOrEqual, filterApproxMatch:
		if len(p.Children) != 2 {
			return Filter{}, fmt.Errorf("ldapfront: AttributeValueAssertion requires 2 children")
		}
		attr, _ := p.Children[0].Value.(string)
		val := string(p.Children[1].Data.Bytes())
		kind := map[int64]FilterKind{
			filterEqualityMatch:  FilterEquality,
			filterGreaterOrEqual: FilterGreaterOrEqual,
			filterLessOrEqual:    FilterLessOrEqual,
			filterApproxMatch:    FilterApproxMatch,
		}[int64(p.Tag)]
		return Filter{Kind: kind, Attribute: attr, Value: val}, nil
	case filterPresent:
		return Filter{Kind: FilterPresent, Attribute: string(p.Data.Bytes())}, nil
	case filterSubstrings:
		return decodeSubstringsFilter(p)
	default:
		return Filter{}, fmt.Errorf("ldapfront: unsupported filter choice tag %d", p.Tag)
	}
}

func decodeFilterChildren(p *ber.Packet) []Filter {
	var out []Filter
	for _, c := range p.Children {
		if f, err := decodeFilter(c); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// decodeSubstringsFilter decodes SubstringFilter ::= SEQUENCE { type
// OCTET STRING, substrings SEQUENCE OF CHOICE { initial [0], any [1],
// final [2] } }.
func decodeSubstringsFilter(p *ber.Packet) (Filter, error) {
	if len(p.Children) != 2 {
		return Filter{}, fmt.Errorf("ldapfront: malformed SubstringFilter")
	}
	attr, _ := p.Children[0].Value.(string)
	f := Filter{Kind: FilterSubstrings, Attribute: attr}
	for _, sub := range p.Children[1].Children {
		val := string(sub.Data.Bytes())
		switch sub.Tag {
		case 0:
			f.Initial = val
		case 1:
			f.Any = append(f.Any, val)
		case 2:
			f.Final = val
		}
	}
	return f, nil
}

func writeResult(conn net.Conn, messageID int64, appTag ber.Tag, resultCode int64, diagnostic string) {
	msg := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "LDAPMessage")
	msg.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, messageID, "messageID"))

	result := ber.Encode(ber.ClassApplication, ber.TypeConstructed, appTag, nil, "LDAPResult")
	result.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, resultCode, "resultCode"))
	result.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "", "matchedDN"))
	result.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, diagnostic, "diagnosticMessage"))
	msg.AppendChild(result)

	conn.Write(msg.Bytes())
}

func writeSearchResultEntry(conn net.Conn, messageID int64, entry Entry) {
	msg := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "LDAPMessage")
	msg.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, messageID, "messageID"))

	op := ber.Encode(ber.ClassApplication, ber.TypeConstructed, appSearchResultEntry, nil, "SearchResultEntry")
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, entry.DN, "objectName"))

	attrs := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "PartialAttributeList")
	for name, values := range entry.Attributes {
		pa := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "PartialAttribute")
		pa.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, name, "type"))
		valSet := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSet, nil, "vals")
		for _, v := range values {
			valSet.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, v, "val"))
		}
		pa.AppendChild(valSet)
		attrs.AppendChild(pa)
	}
	op.AppendChild(attrs)
	msg.AppendChild(op)

	conn.Write(msg.Bytes())
}
