// Package docs registra la documentación Swagger del servicio.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/consents": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "consent"
                ],
                "summary": "Emitir código de consentimiento",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/consents/claim": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "consent"
                ],
                "summary": "Reclamar código de consentimiento",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/consents/{code}/claimed": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "consent"
                ],
                "summary": "¿Ya reclamaron mi código?",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "name": "code",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/consents/revoke": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "consent"
                ],
                "summary": "Revocar códigos",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/me/consents": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "consent"
                ],
                "summary": "Listar mis códigos",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/groups": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "groups"
                ],
                "summary": "Crear grupo familiar",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/me/groups": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "groups"
                ],
                "summary": "Listar mis grupos",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/groups/{groupID}/consents": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "groups"
                ],
                "summary": "Código para sumar un miembro",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "name": "groupID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/groups/{groupID}/members": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "groups"
                ],
                "summary": "Sumarse a un grupo con un código",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "name": "groupID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/groups/{groupID}/grants": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "groups"
                ],
                "summary": "Dar acceso a mis registros",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "name": "groupID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            },
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "groups"
                ],
                "summary": "Listar grants del grupo que me involucran",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "name": "groupID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/grants/{granteeNIK}": {
            "delete": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "groups"
                ],
                "summary": "Quitar acceso a mis registros",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "name": "granteeNIK",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/groups/{groupID}/leave": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "groups"
                ],
                "summary": "Salir del grupo",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "name": "groupID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/groups/{groupID}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "groups"
                ],
                "summary": "Detalle del grupo",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "name": "groupID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/me/profile": {
            "put": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "patients"
                ],
                "summary": "Guardar mi perfil",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            },
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "patients"
                ],
                "summary": "Ver mi perfil",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/sessions/{sessionID}/records": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "records"
                ],
                "summary": "Leer historia bajo una sesión",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "name": "sessionID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            },
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "records"
                ],
                "summary": "Registrar en la historia bajo una sesión",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "name": "sessionID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/sessions/{sessionID}/records/{recordID}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "records"
                ],
                "summary": "Leer un registro bajo una sesión",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "name": "sessionID",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "recordID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/patients/{nik}/records": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "records"
                ],
                "summary": "Leer historia de un paciente",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "name": "nik",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/patients/{nik}/records/{recordID}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "records"
                ],
                "summary": "Leer un registro de un paciente",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "name": "nik",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "recordID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/me/records": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "records"
                ],
                "summary": "Registrar en mi historia",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/me/records/{recordID}/void": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "records"
                ],
                "summary": "Anular un registro de mi historia",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "name": "recordID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/sessions/{sessionID}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "sessions"
                ],
                "summary": "Ver una sesión",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "name": "sessionID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/sessions/{sessionID}/finish": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "sessions"
                ],
                "summary": "Terminar una sesión",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "name": "sessionID",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        },
        "/me/sessions": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "sessions"
                ],
                "summary": "Listar mis sesiones",
                "parameters": [
                    {
                        "type": "string",
                        "description": "NIK en modo dev",
                        "name": "X-Debug-User-ID",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "400": {
                        "description": "invalid_input"
                    },
                    "401": {
                        "description": "unauthorized"
                    },
                    "404": {
                        "description": "not_found"
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Health Consent API",
	Description:      "Códigos de consentimiento, sesiones de acceso y grupos familiares sobre la historia clínica.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
