// Package docs registra el documento OpenAPI de la API (formato swaggo).
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/invoices": {
            "post": {
                "tags": [
                    "invoices"
                ],
                "summary": "Crear factura",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/dto.CreateInvoiceRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.InvoiceDetailResponse"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            },
            "get": {
                "tags": [
                    "invoices"
                ],
                "summary": "Listar facturas",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "status",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "name": "admin_status",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "name": "client_id",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "name": "limit",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "name": "offset",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.InvoiceListResponse"
                        }
                    }
                }
            }
        },
        "/api/invoices/{id}": {
            "get": {
                "tags": [
                    "invoices"
                ],
                "summary": "Detalle de factura",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.InvoiceDetailResponse"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            },
            "delete": {
                "tags": [
                    "invoices"
                ],
                "summary": "Eliminar factura en borrador",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "204": {
                        "description": "OK"
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/invoices/{id}/send": {
            "put": {
                "tags": [
                    "invoices"
                ],
                "summary": "Enviar factura al cliente",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.InvoiceResponse"
                        }
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/invoices/{id}/status": {
            "put": {
                "tags": [
                    "invoices"
                ],
                "summary": "Forzar estado comercial (admin)",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/dto.UpdateStatusRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.InvoiceResponse"
                        }
                    },
                    "403": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/invoices/{id}/pay": {
            "post": {
                "tags": [
                    "invoices"
                ],
                "summary": "Registrar pago de la factura",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/dto.PaymentRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.PaymentResult"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "422": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/payments": {
            "post": {
                "tags": [
                    "payments"
                ],
                "summary": "Registrar pago",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "description": "Body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/dto.PaymentRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.PaymentResult"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "422": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/payments/invoice/{invoiceId}": {
            "get": {
                "tags": [
                    "payments"
                ],
                "summary": "Pagos de una factura",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID",
                        "name": "invoiceId",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.PaymentListResponse"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/payments/{id}": {
            "get": {
                "tags": [
                    "payments"
                ],
                "summary": "Obtener pago",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.PaymentResponse"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            },
            "put": {
                "tags": [
                    "payments"
                ],
                "summary": "Modificar pago",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/dto.PaymentRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.PaymentResult"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "422": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            },
            "delete": {
                "tags": [
                    "payments"
                ],
                "summary": "Eliminar pago",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.PaymentResult"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/electronic-documents": {
            "get": {
                "tags": [
                    "electronic-documents"
                ],
                "summary": "Listar comprobantes",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "status",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "name": "page",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "name": "limit",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.FiscalDocumentListResponse"
                        }
                    }
                }
            }
        },
        "/api/electronic-documents/generate/{invoiceId}": {
            "post": {
                "tags": [
                    "electronic-documents"
                ],
                "summary": "Generar y enviar comprobante al SRI",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID",
                        "name": "invoiceId",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.FiscalDocumentResponse"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/electronic-documents/resend/{invoiceId}": {
            "post": {
                "tags": [
                    "electronic-documents"
                ],
                "summary": "Reenviar comprobante",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID",
                        "name": "invoiceId",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.FiscalDocumentResponse"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/electronic-documents/invoice/{invoiceId}": {
            "get": {
                "tags": [
                    "electronic-documents"
                ],
                "summary": "Comprobante de una factura",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID",
                        "name": "invoiceId",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.FiscalDocumentResponse"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/electronic-documents/download/{invoiceId}/xml": {
            "get": {
                "tags": [
                    "electronic-documents"
                ],
                "summary": "Descargar XML firmado",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/xml"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID",
                        "name": "invoiceId",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/admin/invoices": {
            "get": {
                "tags": [
                    "admin"
                ],
                "summary": "Listar facturas (admin)",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "status",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "name": "admin_status",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "name": "client_id",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "name": "limit",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "name": "offset",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.InvoiceListResponse"
                        }
                    },
                    "403": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/admin/invoices/{id}": {
            "get": {
                "tags": [
                    "admin"
                ],
                "summary": "Detalle de factura (admin)",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.InvoiceDetailResponse"
                        }
                    },
                    "403": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/admin/invoices/{id}/status": {
            "put": {
                "tags": [
                    "admin"
                ],
                "summary": "Revisión administrativa",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "description": "ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/dto.UpdateAdminStatusRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.InvoiceResponse"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "403": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/admin/dashboard": {
            "get": {
                "tags": [
                    "admin"
                ],
                "summary": "Tablero administrativo",
                "security": [
                    {
                        "Bearer": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/dto.AdminDashboardDTO"
                        }
                    },
                    "403": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/dto.ErrorResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "dto.CreateInvoiceRequest": {
            "type": "object",
            "properties": {
                "client_id": {
                    "type": "string"
                },
                "issue_date": {
                    "type": "string"
                },
                "due_date": {
                    "type": "string"
                },
                "notes": {
                    "type": "string"
                },
                "items": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "product_id": {
                                "type": "string"
                            },
                            "description": {
                                "type": "string"
                            },
                            "quantity": {
                                "type": "string",
                                "example": "40.60"
                            },
                            "unit_price": {
                                "type": "string",
                                "example": "40.60"
                            }
                        }
                    }
                }
            }
        },
        "dto.InvoiceResponse": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "invoice_number": {
                    "type": "string"
                },
                "client_id": {
                    "type": "string"
                },
                "issue_date": {
                    "type": "string"
                },
                "due_date": {
                    "type": "string"
                },
                "subtotal": {
                    "type": "string",
                    "example": "40.60"
                },
                "tax_amount": {
                    "type": "string",
                    "example": "40.60"
                },
                "total_amount": {
                    "type": "string",
                    "example": "40.60"
                },
                "status": {
                    "type": "string"
                },
                "admin_status": {
                    "type": "string"
                },
                "admin_notes": {
                    "type": "string"
                },
                "admin_reviewed_by": {
                    "type": "string"
                },
                "admin_reviewed_at": {
                    "type": "string"
                },
                "notes": {
                    "type": "string"
                },
                "created_by": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                }
            }
        },
        "dto.InvoiceDetailResponse": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "invoice_number": {
                    "type": "string"
                },
                "client_id": {
                    "type": "string"
                },
                "issue_date": {
                    "type": "string"
                },
                "due_date": {
                    "type": "string"
                },
                "subtotal": {
                    "type": "string",
                    "example": "40.60"
                },
                "tax_amount": {
                    "type": "string",
                    "example": "40.60"
                },
                "total_amount": {
                    "type": "string",
                    "example": "40.60"
                },
                "status": {
                    "type": "string"
                },
                "admin_status": {
                    "type": "string"
                },
                "admin_notes": {
                    "type": "string"
                },
                "admin_reviewed_by": {
                    "type": "string"
                },
                "admin_reviewed_at": {
                    "type": "string"
                },
                "notes": {
                    "type": "string"
                },
                "created_by": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                },
                "client": {
                    "type": "object",
                    "properties": {
                        "id": {
                            "type": "string"
                        },
                        "name": {
                            "type": "string"
                        },
                        "email": {
                            "type": "string"
                        },
                        "phone": {
                            "type": "string"
                        },
                        "tax_id": {
                            "type": "string"
                        },
                        "address": {
                            "type": "string"
                        }
                    }
                },
                "items": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "id": {
                                "type": "string"
                            },
                            "product_id": {
                                "type": "string"
                            },
                            "description": {
                                "type": "string"
                            },
                            "quantity": {
                                "type": "string",
                                "example": "40.60"
                            },
                            "unit_price": {
                                "type": "string",
                                "example": "40.60"
                            },
                            "total_price": {
                                "type": "string",
                                "example": "40.60"
                            }
                        }
                    }
                },
                "payments": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "id": {
                                "type": "string"
                            },
                            "invoice_id": {
                                "type": "string"
                            },
                            "amount": {
                                "type": "string",
                                "example": "40.60"
                            },
                            "payment_date": {
                                "type": "string"
                            },
                            "payment_method": {
                                "type": "string"
                            },
                            "reference_number": {
                                "type": "string"
                            },
                            "notes": {
                                "type": "string"
                            },
                            "created_at": {
                                "type": "string"
                            }
                        }
                    }
                },
                "payment_summary": {
                    "type": "object",
                    "properties": {
                        "total_amount": {
                            "type": "string",
                            "example": "40.60"
                        },
                        "total_paid": {
                            "type": "string",
                            "example": "40.60"
                        },
                        "remaining_amount": {
                            "type": "string",
                            "example": "40.60"
                        },
                        "is_paid": {
                            "type": "boolean"
                        }
                    }
                }
            }
        },
        "dto.InvoiceListResponse": {
            "type": "object",
            "properties": {
                "items": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "id": {
                                "type": "string"
                            },
                            "invoice_number": {
                                "type": "string"
                            },
                            "client_id": {
                                "type": "string"
                            },
                            "issue_date": {
                                "type": "string"
                            },
                            "due_date": {
                                "type": "string"
                            },
                            "subtotal": {
                                "type": "string",
                                "example": "40.60"
                            },
                            "tax_amount": {
                                "type": "string",
                                "example": "40.60"
                            },
                            "total_amount": {
                                "type": "string",
                                "example": "40.60"
                            },
                            "status": {
                                "type": "string"
                            },
                            "admin_status": {
                                "type": "string"
                            },
                            "admin_notes": {
                                "type": "string"
                            },
                            "admin_reviewed_by": {
                                "type": "string"
                            },
                            "admin_reviewed_at": {
                                "type": "string"
                            },
                            "notes": {
                                "type": "string"
                            },
                            "created_by": {
                                "type": "string"
                            },
                            "created_at": {
                                "type": "string"
                            },
                            "updated_at": {
                                "type": "string"
                            }
                        }
                    }
                },
                "page": {
                    "type": "object",
                    "properties": {
                        "limit": {
                            "type": "integer"
                        },
                        "offset": {
                            "type": "integer"
                        },
                        "total": {
                            "type": "integer"
                        }
                    }
                }
            }
        },
        "dto.UpdateStatusRequest": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string"
                }
            }
        },
        "dto.UpdateAdminStatusRequest": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string"
                },
                "notes": {
                    "type": "string"
                }
            }
        },
        "dto.PaymentRequest": {
            "type": "object",
            "properties": {
                "invoice_id": {
                    "type": "string"
                },
                "amount": {
                    "type": "string",
                    "example": "40.60"
                },
                "payment_date": {
                    "type": "string"
                },
                "payment_method": {
                    "type": "string"
                },
                "reference_number": {
                    "type": "string"
                },
                "notes": {
                    "type": "string"
                }
            }
        },
        "dto.PaymentResponse": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "invoice_id": {
                    "type": "string"
                },
                "amount": {
                    "type": "string",
                    "example": "40.60"
                },
                "payment_date": {
                    "type": "string"
                },
                "payment_method": {
                    "type": "string"
                },
                "reference_number": {
                    "type": "string"
                },
                "notes": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                }
            }
        },
        "dto.PaymentResult": {
            "type": "object",
            "properties": {
                "payment": {
                    "type": "object",
                    "properties": {
                        "id": {
                            "type": "string"
                        },
                        "invoice_id": {
                            "type": "string"
                        },
                        "amount": {
                            "type": "string",
                            "example": "40.60"
                        },
                        "payment_date": {
                            "type": "string"
                        },
                        "payment_method": {
                            "type": "string"
                        },
                        "reference_number": {
                            "type": "string"
                        },
                        "notes": {
                            "type": "string"
                        },
                        "created_at": {
                            "type": "string"
                        }
                    }
                },
                "invoice_status": {
                    "type": "string"
                }
            }
        },
        "dto.PaymentListResponse": {
            "type": "object",
            "properties": {
                "payments": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "id": {
                                "type": "string"
                            },
                            "invoice_id": {
                                "type": "string"
                            },
                            "amount": {
                                "type": "string",
                                "example": "40.60"
                            },
                            "payment_date": {
                                "type": "string"
                            },
                            "payment_method": {
                                "type": "string"
                            },
                            "reference_number": {
                                "type": "string"
                            },
                            "notes": {
                                "type": "string"
                            },
                            "created_at": {
                                "type": "string"
                            }
                        }
                    }
                },
                "summary": {
                    "type": "object",
                    "properties": {
                        "total_amount": {
                            "type": "string",
                            "example": "40.60"
                        },
                        "total_paid": {
                            "type": "string",
                            "example": "40.60"
                        },
                        "remaining_amount": {
                            "type": "string",
                            "example": "40.60"
                        },
                        "is_paid": {
                            "type": "boolean"
                        }
                    }
                }
            }
        },
        "dto.FiscalDocumentResponse": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "invoice_id": {
                    "type": "string"
                },
                "access_key": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "authorized": {
                    "type": "boolean"
                },
                "authorization_number": {
                    "type": "string"
                },
                "authorization_date": {
                    "type": "string"
                },
                "messages": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "identificador": {
                                "type": "string"
                            },
                            "mensaje": {
                                "type": "string"
                            },
                            "informacion_adicional": {
                                "type": "string"
                            },
                            "tipo": {
                                "type": "string"
                            }
                        }
                    }
                },
                "invoice_status": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                }
            }
        },
        "dto.FiscalDocumentListResponse": {
            "type": "object",
            "properties": {
                "documents": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "id": {
                                "type": "string"
                            },
                            "invoice_id": {
                                "type": "string"
                            },
                            "access_key": {
                                "type": "string"
                            },
                            "status": {
                                "type": "string"
                            },
                            "authorized": {
                                "type": "boolean"
                            },
                            "authorization_number": {
                                "type": "string"
                            },
                            "authorization_date": {
                                "type": "string"
                            },
                            "messages": {
                                "type": "array",
                                "items": {
                                    "type": "object",
                                    "properties": {
                                        "identificador": {
                                            "type": "string"
                                        },
                                        "mensaje": {
                                            "type": "string"
                                        },
                                        "informacion_adicional": {
                                            "type": "string"
                                        },
                                        "tipo": {
                                            "type": "string"
                                        }
                                    }
                                }
                            },
                            "invoice_status": {
                                "type": "string"
                            },
                            "created_at": {
                                "type": "string"
                            },
                            "updated_at": {
                                "type": "string"
                            },
                            "invoice_number": {
                                "type": "string"
                            },
                            "total_amount": {
                                "type": "string",
                                "example": "40.60"
                            },
                            "client_name": {
                                "type": "string"
                            },
                            "client_tax_id": {
                                "type": "string"
                            }
                        }
                    }
                },
                "pagination": {
                    "type": "object",
                    "properties": {
                        "page": {
                            "type": "integer"
                        },
                        "limit": {
                            "type": "integer"
                        },
                        "total": {
                            "type": "integer"
                        },
                        "total_pages": {
                            "type": "integer"
                        }
                    }
                }
            }
        },
        "dto.AdminDashboardDTO": {
            "type": "object"
        }
    },
    "securityDefinitions": {
        "Bearer": {
            "description": "Bearer <token JWT>",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "host": "{{.Host}}",
    "schemes": {{ marshal .Schemes }}
}`

// SwaggerInfo metadatos exportados del documento.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Facturación SRI API",
	Description:      "Ciclo de vida de facturas, pagos y autorización de comprobantes electrónicos ante el SRI (Ecuador).",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
