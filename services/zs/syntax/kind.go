// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package syntax

// Kind is the closed set of node kinds produced by the ZS grammar.
//
// Description:
//
//	Named kinds carry the grammar's node type string (see String). Anonymous
//	tokens such as punctuation and keywords all share KindToken and are told
//	apart by their symbol text. Node types that are not part of the ZS
//	vocabulary (for example when adapting a foreign tree-sitter grammar) map
//	to KindUnknown and keep their original type string.
type Kind uint16

const (
	KindUnknown Kind = iota
	KindToken
	KindError

	// Structure
	KindProgram
	KindBlock
	KindClassBody
	KindInterfaceBody
	KindEnumeratorList
	KindSwitchBlock

	// Declarations
	KindClassDeclaration
	KindInterfaceDeclaration
	KindEnumDeclaration
	KindEnumerator
	KindFunctionDeclaration
	KindMethodDeclaration
	KindMethodSignatureDeclaration
	KindMethodInterface
	KindFieldDeclaration
	KindGetDeclaration
	KindSetDeclaration
	KindLocalVariableDeclaration
	KindLocalTypeDeclaration
	KindVariableDeclarator
	KindTypedVariableDeclarator
	KindFormalParameters
	KindFormalParameter
	KindModifiers
	KindSuperclass
	KindSuperInterfaces

	// Types
	KindTypeParameters
	KindTypeParameter
	KindTypeArguments
	KindGenericType
	KindArrayType
	KindDimensions
	KindTypeIdentifier
	KindIdentifier
	KindVoidType
	KindIntegralType
	KindFloatingPointType
	KindFixType
	KindStrType
	KindBooleanType

	// Statements
	KindExpressionStatement
	KindReturnStatement
	KindIfStatement
	KindWhileStatement
	KindDoStatement
	KindForStatement
	KindSwitchStatement
	KindSwitchLabel
	KindBreakStatement
	KindContinueStatement

	// Expressions
	KindAssignmentExpression
	KindBinaryExpression
	KindUnaryExpression
	KindUpdateExpression
	KindTernaryExpression
	KindParenthesizedExpression
	KindFieldAccess
	KindMethodInvocation
	KindArgumentList
	KindNewExpression
	KindArrayAccess
	KindArrayInitializer

	// Literals
	KindDecimalIntegerLiteral
	KindHexIntegerLiteral
	KindDecimalFloatingPointLiteral
	KindStringLiteral
	KindStringFragment
	KindCharacterLiteral
	KindTrue
	KindFalse
	KindNullLiteral
	KindThis

	// Preprocessor
	KindPreprocInclude
	KindPreprocDef
	KindPreprocUndef
	KindPreprocCall
	KindPreprocDirective
	KindPreprocArg
	KindSystemLibString

	// Comments
	KindLineComment
	KindBlockComment

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown: "unknown",
	KindToken:   "token",
	KindError:   "ERROR",

	KindProgram:        "program",
	KindBlock:          "block",
	KindClassBody:      "class_body",
	KindInterfaceBody:  "interface_body",
	KindEnumeratorList: "enumerator_list",
	KindSwitchBlock:    "switch_block",

	KindClassDeclaration:           "class_declaration",
	KindInterfaceDeclaration:       "interface_declaration",
	KindEnumDeclaration:            "enum_declaration",
	KindEnumerator:                 "enumerator",
	KindFunctionDeclaration:        "function_declaration",
	KindMethodDeclaration:          "method_declaration",
	KindMethodSignatureDeclaration: "method_signature_declaration",
	KindMethodInterface:            "method_interface",
	KindFieldDeclaration:           "field_declaration",
	KindGetDeclaration:             "get_declaration",
	KindSetDeclaration:             "set_declaration",
	KindLocalVariableDeclaration:   "local_variable_declaration",
	KindLocalTypeDeclaration:       "local_type_declaration",
	KindVariableDeclarator:         "variable_declarator",
	KindTypedVariableDeclarator:    "typed_variable_declarator",
	KindFormalParameters:           "formal_parameters",
	KindFormalParameter:            "formal_parameter",
	KindModifiers:                  "modifiers",
	KindSuperclass:                 "superclass",
	KindSuperInterfaces:            "super_interfaces",

	KindTypeParameters:    "type_parameters",
	KindTypeParameter:     "type_parameter",
	KindTypeArguments:     "type_arguments",
	KindGenericType:       "generic_type",
	KindArrayType:         "array_type",
	KindDimensions:        "dimensions",
	KindTypeIdentifier:    "type_identifier",
	KindIdentifier:        "identifier",
	KindVoidType:          "void_type",
	KindIntegralType:      "integral_type",
	KindFloatingPointType: "floating_point_type",
	KindFixType:           "fix_type",
	KindStrType:           "str_type",
	KindBooleanType:       "boolean_type",

	KindExpressionStatement: "expression_statement",
	KindReturnStatement:     "return_statement",
	KindIfStatement:         "if_statement",
	KindWhileStatement:      "while_statement",
	KindDoStatement:         "do_statement",
	KindForStatement:        "for_statement",
	KindSwitchStatement:     "switch_statement",
	KindSwitchLabel:         "switch_label",
	KindBreakStatement:      "break_statement",
	KindContinueStatement:   "continue_statement",

	KindAssignmentExpression:    "assignment_expression",
	KindBinaryExpression:        "binary_expression",
	KindUnaryExpression:         "unary_expression",
	KindUpdateExpression:        "update_expression",
	KindTernaryExpression:       "ternary_expression",
	KindParenthesizedExpression: "parenthesized_expression",
	KindFieldAccess:             "field_access",
	KindMethodInvocation:        "method_invocation",
	KindArgumentList:            "argument_list",
	KindNewExpression:           "new_expression",
	KindArrayAccess:             "array_access",
	KindArrayInitializer:        "array_initializer",

	KindDecimalIntegerLiteral:       "decimal_integer_literal",
	KindHexIntegerLiteral:           "hex_integer_literal",
	KindDecimalFloatingPointLiteral: "decimal_floating_point_literal",
	KindStringLiteral:               "string_literal",
	KindStringFragment:              "string_fragment",
	KindCharacterLiteral:            "character_literal",
	KindTrue:                        "true",
	KindFalse:                       "false",
	KindNullLiteral:                 "null_literal",
	KindThis:                        "this",

	KindPreprocInclude:   "preproc_include",
	KindPreprocDef:       "preproc_def",
	KindPreprocUndef:     "preproc_undef",
	KindPreprocCall:      "preproc_call",
	KindPreprocDirective: "preproc_directive",
	KindPreprocArg:       "preproc_arg",
	KindSystemLibString:  "system_lib_string",

	KindLineComment:  "line_comment",
	KindBlockComment: "block_comment",
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		if Kind(k) == KindUnknown || Kind(k) == KindToken {
			continue
		}
		m[name] = Kind(k)
	}
	return m
}()

// String returns the grammar node type for named kinds.
func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind maps a grammar node type string to its Kind.
// Unrecognized names return KindUnknown and false.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindByName[name]
	return k, ok
}

// IsDeclaration reports whether nodes of this kind introduce names into
// the scope that contains them.
func (k Kind) IsDeclaration() bool {
	switch k {
	case KindClassDeclaration,
		KindEnumDeclaration,
		KindEnumerator,
		KindFunctionDeclaration,
		KindFieldDeclaration,
		KindMethodDeclaration,
		KindInterfaceDeclaration,
		KindLocalVariableDeclaration,
		KindLocalTypeDeclaration,
		KindMethodSignatureDeclaration,
		KindFormalParameter:
		return true
	default:
		return false
	}
}

// IsComment reports whether the kind is a line or block comment.
func (k Kind) IsComment() bool {
	return k == KindLineComment || k == KindBlockComment
}

// In reports whether k is one of kinds.
func (k Kind) In(kinds ...Kind) bool {
	for _, c := range kinds {
		if c == k {
			return true
		}
	}
	return false
}
