// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

// minProtocolVersion is the lowest handshake protocol version this client speaks.
const minProtocolVersion = 10

// maxPacketSize is the maximum payload length of a single packet frame;
// payloads at or above this length are split across multiple frames (§4.4).
const maxPacketSize = 1<<24 - 1

// defaultMaxAllowedPacket is used when Config.MaxAllowedPacket is 0; the
// server's max_allowed_packet is never queried.
const defaultMaxAllowedPacket = 64 << 20

// capabilityFlag is the client/server capability bitfield exchanged during
// the handshake (§4.6).
type capabilityFlag uint32

const (
	clientLongPassword capabilityFlag = 1 << iota
	clientFoundRows
	clientLongFlag
	clientConnectWithDB
	clientNoSchema
	clientCompress
	clientODBC
	clientLocalFiles
	clientIgnoreSpace
	clientProtocol41
	clientInteractive
	clientSSL
	clientIgnoreSigPipe
	clientTransactions
	clientReserved
	clientSecureConn
	clientMultiStatements
	clientMultiResults
	clientPSMultiResults
	clientPluginAuth
	clientConnectAttrs
	clientPluginAuthLenencClientData
	clientCanHandleExpiredPasswords
	clientSessionTrack
	clientDeprecateEOF
)

// mandatoryCapabilities are always requested regardless of Config (§4.6 step 2).
const mandatoryCapabilities = clientProtocol41 | clientSecureConn | clientLongPassword |
	clientTransactions | clientMultiResults | clientPluginAuth | clientPluginAuthLenencClientData |
	clientConnectAttrs

// commandType is the one-byte COM_* command prefix (§GLOSSARY).
type commandType byte

const (
	comQuit        commandType = 0x01
	comInitDB      commandType = 0x02
	comQuery       commandType = 0x03
	comProcessKill commandType = 0x0c
	comPing        commandType = 0x0e
)

// server response packet header bytes.
const (
	iOK           byte = 0x00
	iAuthMoreData byte = 0x01
	iLocalInFile  byte = 0xfb
	iEOF          byte = 0xfe
	iERR          byte = 0xff
)

// serverStatus is the status bitfield returned by OK/EOF packets (§3).
type serverStatus uint16

const (
	statusInTrans            serverStatus = 0x0001
	statusInAutocommit       serverStatus = 0x0002
	statusMoreResultsExists  serverStatus = 0x0008
	statusNoGoodIndexUsed    serverStatus = 0x0010
	statusNoIndexUsed        serverStatus = 0x0020
	statusCursorExists       serverStatus = 0x0040
	statusLastRowSent        serverStatus = 0x0080
	statusDBDropped          serverStatus = 0x0100
	statusNoBackslashEscapes serverStatus = 0x0200
	statusMetadataChanged    serverStatus = 0x0400
	statusQueryWasSlow       serverStatus = 0x0800
	statusPSOutParams        serverStatus = 0x1000
	statusInTransReadonly    serverStatus = 0x2000
	statusSessionStateChanged serverStatus = 0x4000
)

// fieldType is the one-byte column type code (§3 ColumnDefinition).
type fieldType byte

const (
	fieldTypeDecimal fieldType = iota
	fieldTypeTiny
	fieldTypeShort
	fieldTypeLong
	fieldTypeFloat
	fieldTypeDouble
	fieldTypeNULL
	fieldTypeTimestamp
	fieldTypeLongLong
	fieldTypeInt24
	fieldTypeDate
	fieldTypeTime
	fieldTypeDateTime
	fieldTypeYear
	fieldTypeNewDate
	fieldTypeVarChar
	fieldTypeBit
)

const (
	fieldTypeJSON fieldType = iota + 0xf5
	fieldTypeNewDecimal
	fieldTypeEnum
	fieldTypeSet
	fieldTypeTinyBLOB
	fieldTypeMediumBLOB
	fieldTypeLongBLOB
	fieldTypeBLOB
	fieldTypeVarString
	fieldTypeString
	fieldTypeGeometry
)

// fieldFlag is the column flag bitfield (§3 ColumnDefinition).
type fieldFlag uint16

const (
	flagNotNULL fieldFlag = 1 << iota
	flagPriKey
	flagUniqueKey
	flagMultipleKey
	flagBLOB
	flagUnsigned
	flagZeroFill
	flagBinary
	flagEnum
	flagAutoIncrement
	flagTimestamp
	flagSet
	_
	_
	_
	flagNum
)

// binary charset id (columns with this charset id are raw bytes, §4.2).
const binaryCharsetID = 63
